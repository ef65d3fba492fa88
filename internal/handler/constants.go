package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteSignup is the signup route.
	RouteSignup = "/signup"
	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RouteMembers is the members-only route.
	RouteMembers = "/members"
	// RouteAdmin is the admin route.
	RouteAdmin = "/admin"
	// RoutePromoteID is the promote route pattern.
	RoutePromoteID = "/promote/{id}"
	// RouteDemoteID is the demote route pattern.
	RouteDemoteID = "/demote/{id}"
)

// genericErrorMessage is shown to users when a storage or hashing
// failure occurs. The underlying error is logged, never displayed.
const genericErrorMessage = "Something went wrong. Please try again."
