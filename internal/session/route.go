package session

// Group is a set of screens shown together behind the gate.
type Group string

const (
	GroupAuth Group = "auth"
	GroupMain Group = "main"
)

// Screen names.
const (
	ScreenLogin       = "login"
	ScreenRegister    = "register"
	ScreenVerifyEmail = "verify-email"

	ScreenHome          = "home"
	ScreenListing       = "listing"
	ScreenFavorites     = "favorites"
	ScreenBookings      = "bookings"
	ScreenReceived      = "received"
	ScreenNotifications = "notifications"
	ScreenProfile       = "profile"

	ScreenAds          = "ads"
	ScreenAd           = "ad"
	ScreenAvailability = "availability"
	ScreenNewAd        = "new-ad"
)

// Route identifies a screen.
type Route struct {
	Group  Group
	Screen string
}

var (
	// LoginRoute is the entry of the auth group.
	LoginRoute = Route{Group: GroupAuth, Screen: ScreenLogin}
	// HomeRoute is the entry of the main group.
	HomeRoute = Route{Group: GroupMain, Screen: ScreenHome}
)

// RouteFor places screen in its group. Only the sign-in screens are in the
// auth group.
func RouteFor(screen string) Route {
	switch screen {
	case ScreenLogin, ScreenRegister, ScreenVerifyEmail:
		return Route{Group: GroupAuth, Screen: screen}
	default:
		return Route{Group: GroupMain, Screen: screen}
	}
}

func (r Route) String() string {
	if r.Group == "" {
		return "none"
	}
	return string(r.Group) + "/" + r.Screen
}
