package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"staybook/internal/account"
	"staybook/internal/ads"
	"staybook/internal/auth"
	"staybook/internal/booking"
	"staybook/internal/catalog"
	"staybook/internal/domain"
	"staybook/internal/inbox"
	"staybook/internal/media"
	"staybook/internal/session"
)

// commandScreens places every command on the screen it belongs to. Commands of
// the other group are navigation requests the gate may redirect.
var commandScreens = map[string]string{
	"/login":    session.ScreenLogin,
	"/register": session.ScreenRegister,
	"/verify":   session.ScreenVerifyEmail,
	"/resend":   session.ScreenVerifyEmail,

	"/home":          session.ScreenHome,
	"/category":      session.ScreenHome,
	"/like":          session.ScreenHome,
	"/listing":       session.ScreenListing,
	"/dates":         session.ScreenListing,
	"/book":          session.ScreenListing,
	"/favorites":     session.ScreenFavorites,
	"/bookings":      session.ScreenBookings,
	"/cancel":        session.ScreenBookings,
	"/received":      session.ScreenReceived,
	"/notifications": session.ScreenNotifications,
	"/read":          session.ScreenNotifications,
	"/hostmode":      session.ScreenProfile,
	"/profile":       session.ScreenProfile,
	"/password":      session.ScreenProfile,
	"/logout":        session.ScreenProfile,

	"/ads":          session.ScreenAds,
	"/deletead":     session.ScreenAds,
	"/ad":           session.ScreenAd,
	"/availability": session.ScreenAvailability,
	"/block":        session.ScreenAvailability,
	"/newad":        session.ScreenNewAd,
}

// hostOnly answers host commands outside host mode.
const hostOnly = "Réservé au mode propriétaire: /hostmode on"

var hostCommands = map[string]bool{
	"/received":     true,
	"/ads":          true,
	"/deletead":     true,
	"/ad":           true,
	"/availability": true,
	"/block":        true,
	"/newad":        true,
}

var statuses = []string{
	booking.StatusAll,
	string(domain.StatusPending),
	string(domain.StatusConfirmed),
	string(domain.StatusCompleted),
	string(domain.StatusDeclined),
}

func isStatus(s string) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

// dispatch runs one chat command and returns the reply. Commands run one at a time.
func (h *Handler) dispatch(ctx context.Context, text string) string {
	h.dmu.Lock()
	defer h.dmu.Unlock()

	h.mu.Lock()
	h.inDispatch = true
	h.redirected = false
	h.mu.Unlock()

	reply := h.run(ctx, text)

	h.mu.Lock()
	h.inDispatch = false
	redirected := h.redirected
	current := h.current
	h.mu.Unlock()

	if redirected {
		screen := renderScreen(current, h)
		if reply == "" {
			return screen
		}
		return reply + "\n\n" + screen
	}
	return reply
}

func (h *Handler) run(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return h.help()
	}
	cmd := strings.ToLower(fields[0])
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}
	args := fields[1:]

	log := h.log.WithField("command", cmd)
	log.Debug("Received command")

	if h.app.Gate == nil {
		return "Chargement..."
	}
	if cmd == "/start" || cmd == "/help" {
		return h.showCurrent()
	}

	screen, known := commandScreens[cmd]
	if !known {
		return "Commande inconnue.\n\n" + h.help()
	}
	target, err := h.app.Gate.Navigate(session.RouteFor(screen))
	if errors.Is(err, session.ErrNotReady) {
		return "Chargement..."
	}
	h.mu.Lock()
	h.redirected = false
	h.mu.Unlock()
	if target.Screen != screen {
		log.WithField("target", target.String()).Info("Command redirected by session gate")
		return renderScreen(target, h)
	}

	if hostCommands[cmd] && !h.app.HostMode.Get() {
		return hostOnly
	}

	switch cmd {
	case "/login":
		return h.login(ctx, args)
	case "/register":
		return h.register(ctx, args)
	case "/verify":
		return h.verify(ctx, args)
	case "/resend":
		return h.resend(ctx)
	case "/home":
		h.query = strings.Join(args, " ")
		return renderScreen(target, h)
	case "/category":
		return h.selectCategory(args)
	case "/like":
		return h.like(args)
	case "/listing":
		return h.openListing(args)
	case "/dates":
		return h.pickDate(args)
	case "/book":
		return h.book()
	case "/favorites":
		return renderFavorites(h.app.Favorites.List())
	case "/bookings":
		return h.bookings(args)
	case "/cancel":
		return h.cancel(args)
	case "/received":
		return h.received(args)
	case "/notifications":
		return renderNotifications(h.app.Inbox.List(), h.app.Inbox.UnreadCount())
	case "/read":
		return h.read(args)
	case "/hostmode":
		return h.hostMode(args)
	case "/profile":
		return h.profile(ctx)
	case "/password":
		return h.password(ctx, args)
	case "/logout":
		return h.logout(ctx)
	case "/ads":
		return renderAds(h.app.Ads.List(), h.app.Unavailabilities)
	case "/ad":
		return h.openAd(args)
	case "/deletead":
		return h.deleteAd(args)
	case "/availability":
		return h.availability(args)
	case "/block":
		return h.block(args)
	case "/newad":
		return h.newAd(ctx, args)
	}
	return h.help()
}

func (h *Handler) showCurrent() string {
	if h.app.Gate.State() == session.StateUnknown {
		return "Chargement..."
	}
	return renderScreen(h.Current(), h)
}

func (h *Handler) help() string {
	if h.Current().Group == session.GroupMain {
		if h.app.HostMode.Get() {
			return mainHelp + "\n" + hostHelp
		}
		return mainHelp
	}
	return authHelp
}

// errorReply turns err into the text shown to the user.
func errorReply(err error) string {
	var ve *account.ValidationError
	var adErr *ads.ValidationError
	var storageErr *media.APIError
	switch {
	case errors.As(err, &ve):
		return "Erreur: " + ve.Message
	case errors.As(err, &adErr):
		return "Erreur: " + adErr.Message
	case errors.As(err, &storageErr):
		return "Erreur: " + storageErr.Message
	default:
		return "Erreur: " + auth.UserMessage(err)
	}
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// --- Auth group ---

func (h *Handler) login(ctx context.Context, args []string) string {
	if _, err := h.app.Account.Login(ctx, arg(args, 0), arg(args, 1)); err != nil {
		h.log.WithError(err).Warn("Login failed")
		return errorReply(err)
	}
	return "Connexion réussie."
}

func (h *Handler) register(ctx context.Context, args []string) string {
	form := account.RegisterForm{}
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "proprietaire", "propriétaire", "owner":
			form.IsOwner = true
			args = args[1:]
		}
	}
	form.Email = arg(args, 0)
	form.Password = arg(args, 1)
	if len(args) > 2 {
		form.FullName = strings.Join(args[2:], " ")
	}
	if form.IsOwner && len(h.photos) == 2 {
		form.IDCard = &h.photos[0]
		form.Selfie = &h.photos[1]
	}

	result, err := h.app.Account.Register(ctx, form)
	if err != nil {
		h.log.WithError(err).Warn("Registration failed")
		return errorReply(err)
	}
	h.photos = nil
	if !result.PendingVerification {
		return "Compte créé."
	}

	h.pendingEmail = form.Email
	if _, err := h.app.Gate.Navigate(session.RouteFor(session.ScreenVerifyEmail)); err != nil {
		h.log.WithError(err).Warn("Failed to open verification screen")
	}
	h.mu.Lock()
	h.redirected = false
	h.mu.Unlock()
	return "Compte créé.\n" + renderVerify(form.Email)
}

func (h *Handler) verify(ctx context.Context, args []string) string {
	if h.pendingEmail == "" {
		return "Aucune inscription en attente. Utilisez /register."
	}
	if _, err := h.app.Account.Verify(ctx, h.pendingEmail, arg(args, 0)); err != nil {
		return errorReply(err)
	}
	h.pendingEmail = ""
	return "Votre compte est validé !"
}

func (h *Handler) resend(ctx context.Context) string {
	if h.pendingEmail == "" {
		return "Aucune inscription en attente. Utilisez /register."
	}
	if err := h.app.Account.Resend(ctx, h.pendingEmail); err != nil {
		return errorReply(err)
	}
	return "Un nouveau code a été envoyé."
}

// addPhoto keeps a photo for the form on screen. On the sign-up screens it is
// an identity photo, first the ID card then the selfie, and a third photo
// starts over. On the new ad screen it is added to the ad.
func (h *Handler) addPhoto(p media.Photo) string {
	h.dmu.Lock()
	defer h.dmu.Unlock()

	current := h.Current()
	if current.Screen == session.ScreenNewAd && h.app.HostMode.Get() {
		h.adPhotos = append(h.adPhotos, p)
		return fmt.Sprintf("Photo %d reçue.\n%s", len(h.adPhotos), newAdUsage)
	}
	if current.Group != session.GroupAuth {
		return "Les photos ne sont utilisées que pour l'inscription ou une nouvelle annonce (/newad)."
	}
	if len(h.photos) == 2 {
		h.photos = nil
	}
	h.photos = append(h.photos, p)
	if len(h.photos) == 1 {
		return "Pièce d'identité reçue. Envoyez maintenant un selfie."
	}
	return "Selfie reçu. Terminez avec /register proprietaire <email> <mot de passe> <nom complet>."
}

// --- Main group ---

func (h *Handler) selectCategory(args []string) string {
	id := strings.ToLower(arg(args, 0))
	if !catalog.IsCategory(id) {
		ids := make([]string, 0, len(catalog.Categories))
		for _, c := range catalog.Categories {
			ids = append(ids, c.ID)
		}
		return "Catégorie inconnue. Choix: " + strings.Join(ids, ", ")
	}
	h.category = id
	return renderScreen(session.HomeRoute, h)
}

// findListing looks the listing up in the catalog, then in the favorites,
// which keep snapshots of listings no longer in the catalog.
func (h *Handler) findListing(id string) (domain.Listing, bool) {
	if l, ok := h.app.Catalog.ByID(id); ok {
		return l, true
	}
	for _, l := range h.app.Favorites.List() {
		if l.ID == id {
			return l, true
		}
	}
	return domain.Listing{}, false
}

func (h *Handler) like(args []string) string {
	l, ok := h.findListing(arg(args, 0))
	if !ok {
		return "Logement introuvable."
	}
	if _, _, err := h.app.Favorites.Toggle(l); err != nil {
		return errorReply(err)
	}
	if h.app.Favorites.IsFavorite(l.ID) {
		return "♥ Ajouté aux favoris: " + l.Title
	}
	return "Retiré des favoris: " + l.Title
}

func (h *Handler) openListing(args []string) string {
	l, ok := h.findListing(arg(args, 0))
	if !ok {
		return "Logement introuvable."
	}
	if l.ID != h.listingID || h.picker == nil {
		h.listingID = l.ID
		h.picker = booking.NewRangePicker(h.now())
	}
	return renderListing(l, h.app.Favorites.IsFavorite(l.ID), h.picker.Range())
}

func (h *Handler) currentListing() (domain.Listing, bool) {
	if h.listingID == "" || h.picker == nil {
		return domain.Listing{}, false
	}
	return h.findListing(h.listingID)
}

func (h *Handler) pickDate(args []string) string {
	l, ok := h.currentListing()
	if !ok {
		return "Choisissez d'abord un logement: /listing <id>"
	}
	day, err := booking.ParseDay(arg(args, 0))
	if err != nil {
		return "Date invalide, format AAAA-MM-JJ."
	}
	if _, err := h.picker.Pick(day); errors.Is(err, booking.ErrPastDay) {
		return "Impossible de choisir une date passée."
	}
	return renderListing(l, h.app.Favorites.IsFavorite(l.ID), h.picker.Range())
}

func (h *Handler) book() string {
	l, ok := h.currentListing()
	if !ok {
		return "Choisissez d'abord un logement: /listing <id>"
	}
	b, err := h.app.Bookings.Request(l, h.picker.Range())
	if errors.Is(err, booking.ErrIncompleteRange) {
		return "Veuillez sélectionner vos dates."
	}
	if err != nil {
		return errorReply(err)
	}
	h.picker.Reset()
	h.log.WithFields(logrus.Fields{"listing_id": l.ID, "booking_id": b.ID}).Info("Stay requested")
	return fmt.Sprintf("Réservation envoyée !\n%s - %s - %s [%s]", b.Title, b.Dates, b.Price, b.Status.Label())
}

func (h *Handler) bookings(args []string) string {
	status := strings.ToLower(arg(args, 0))
	if status != "" && !isStatus(status) {
		return "Statut inconnu. Choix: " + strings.Join(statuses, ", ")
	}
	return renderBookings(h.app.Bookings.List(status))
}

func (h *Handler) cancel(args []string) string {
	if h.app.Bookings.Cancel(arg(args, 0)) {
		return "Réservation annulée."
	}
	return "Réservation introuvable."
}

func (h *Handler) received(args []string) string {
	status := ""
	if len(args) > 0 && isStatus(strings.ToLower(args[0])) {
		status = strings.ToLower(args[0])
		args = args[1:]
	}
	return renderReceived(h.app.Received.List(status, strings.Join(args, " ")))
}

func (h *Handler) read(args []string) string {
	n, _, err := h.app.Inbox.Open(arg(args, 0))
	if errors.Is(err, inbox.ErrUnknownNotification) {
		return "Notification introuvable."
	}
	if err != nil {
		return errorReply(err)
	}
	return renderNotification(n)
}

func (h *Handler) hostMode(args []string) string {
	switch strings.ToLower(arg(args, 0)) {
	case "":
	case "on":
		h.app.HostMode.Set(true)
	case "off":
		h.app.HostMode.Set(false)
	default:
		return "Usage: /hostmode [on|off]"
	}
	return modeLabel(h.app.HostMode.Get())
}

func (h *Handler) profile(ctx context.Context) string {
	user, err := h.app.Account.Profile(ctx)
	if err != nil {
		return errorReply(err)
	}
	return renderProfile(user, h.app.HostMode.Get())
}

func (h *Handler) password(ctx context.Context, args []string) string {
	if err := h.app.Account.ChangePassword(ctx, arg(args, 0), arg(args, 1), arg(args, 2)); err != nil {
		return errorReply(err)
	}
	return "Votre mot de passe a été mis à jour."
}

func (h *Handler) logout(ctx context.Context) string {
	if err := h.app.Account.SignOut(ctx); err != nil {
		return errorReply(err)
	}
	return "Vous êtes déconnecté."
}

// --- Host ads ---

func (h *Handler) openAd(args []string) string {
	ad, ok := h.app.Ads.ByID(arg(args, 0))
	if !ok {
		return "Annonce introuvable."
	}
	return renderAd(ad, h.app.Unavailabilities.Count(ad.ID))
}

func (h *Handler) deleteAd(args []string) string {
	if !h.app.Ads.Delete(arg(args, 0)) {
		return "Annonce introuvable."
	}
	return "Annonce supprimée."
}

func (h *Handler) availability(args []string) string {
	ad, ok := h.app.Ads.ByID(arg(args, 0))
	if !ok {
		return "Annonce introuvable."
	}
	filter, err := ads.ParseFilter(strings.Join(args[1:], " "))
	if err != nil {
		return "Filtre inconnu. Choix: tous, avenir, termine"
	}
	return renderAvailability(ad, filter, h.app.Unavailabilities)
}

func (h *Handler) block(args []string) string {
	ad, ok := h.app.Ads.ByID(arg(args, 0))
	if !ok {
		return "Annonce introuvable."
	}
	start, err := booking.ParseDay(arg(args, 1))
	if err != nil {
		return "Date invalide, format AAAA-MM-JJ."
	}
	end, err := booking.ParseDay(arg(args, 2))
	if err != nil {
		return "Date invalide, format AAAA-MM-JJ."
	}
	reason := ""
	if len(args) > 3 {
		reason = strings.Join(args[3:], " ")
	}

	item, err := h.app.Unavailabilities.Block(ad.ID, start, end, reason)
	if err != nil {
		return errorReply(err)
	}
	h.log.WithFields(logrus.Fields{"ad_id": ad.ID, "block_id": item.ID}).Info("Dates blocked")
	return "Indisponibilité enregistrée.\n\n" + renderAvailability(ad, ads.FilterAll, h.app.Unavailabilities)
}

// newAd shows the form without arguments, and publishes with
// "<title> | <price> | <location> | <description>" using the photos sent so far.
func (h *Handler) newAd(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return renderNewAd(len(h.adPhotos))
	}
	parts := strings.Split(strings.Join(args, " "), "|")
	field := func(i int) string {
		if i < len(parts) {
			return strings.TrimSpace(parts[i])
		}
		return ""
	}
	draft := ads.Draft{
		Title:       field(0),
		Price:       field(1),
		Location:    field(2),
		Description: field(3),
		Photos:      h.adPhotos,
	}

	ad, err := h.app.Ads.Publish(ctx, draft)
	if err != nil {
		h.log.WithError(err).Warn("Ad not published")
		return errorReply(err)
	}
	h.adPhotos = nil
	return "Annonce publiée !\n" + adLine(ad, 0)
}

var _ session.Navigator = (*Handler)(nil)

// Current implements session.Navigator.
func (h *Handler) Current() session.Route {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Replace implements session.Navigator. Outside a command, the new screen is
// pushed to the owner chat.
func (h *Handler) Replace(r session.Route) {
	h.mu.Lock()
	h.current = r
	h.redirected = true
	inDispatch := h.inDispatch
	h.mu.Unlock()

	if inDispatch || h.sender == nil {
		return
	}
	text := renderLogin()
	if r.Group == session.GroupMain {
		text = "Vous êtes connecté.\n\n" + mainHelp
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.sender.Send(ctx, h.owner, text); err != nil {
		h.log.WithError(err).Error("Failed to push screen")
	}
}
