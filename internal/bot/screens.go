package bot

import (
	"fmt"
	"strings"

	"staybook/internal/ads"
	"staybook/internal/booking"
	"staybook/internal/catalog"
	"staybook/internal/domain"
	"staybook/internal/session"
)

const (
	authHelp = "/login <email> <mot de passe>\n" +
		"/register [proprietaire] <email> <mot de passe> <nom complet>\n" +
		"/verify <code>\n/resend"
	mainHelp = "/home [recherche]  /category <id>  /listing <id>  /like <id>\n" +
		"/favorites  /dates <AAAA-MM-JJ>  /book  /bookings [statut]  /cancel <id>\n" +
		"/hostmode [on|off]  /received [statut] [recherche]\n" +
		"/notifications  /read <id>  /profile  /password <actuel> <nouveau> <confirmation>  /logout"
	hostHelp = "Propriétaire: /ads  /ad <id>  /deletead <id>  /newad\n" +
		"/availability <id> [tous|avenir|termine]  /block <id> <AAAA-MM-JJ> <AAAA-MM-JJ> <motif>"
)

const newAdUsage = "/newad <titre> | <prix> | <lieu> | <description>"

func renderLogin() string {
	return "Bienvenue sur Staybook.\nConnectez-vous ou créez un compte.\n\n" + authHelp
}

func renderVerify(email string) string {
	return fmt.Sprintf("Un code à 6 chiffres a été envoyé à %s.\n/verify <code> pour valider, /resend pour un nouveau code.", email)
}

func renderRegister(photos int) string {
	return fmt.Sprintf("Inscription.\nPropriétaire: envoyez d'abord la photo de votre pièce d'identité puis un selfie (%d/2 reçues).\n\n%s", photos, authHelp)
}

func renderScreen(r session.Route, h *Handler) string {
	switch r.Screen {
	case session.ScreenLogin:
		return renderLogin()
	case session.ScreenRegister:
		return renderRegister(len(h.photos))
	case session.ScreenVerifyEmail:
		return renderVerify(h.pendingEmail)
	case session.ScreenHome:
		return renderHome(h.app.Catalog.Search(h.query, h.category), h)
	case session.ScreenNewAd:
		return renderNewAd(len(h.adPhotos))
	default:
		if h.app.HostMode.Get() {
			return "Staybook\n\n" + mainHelp + "\n" + hostHelp
		}
		return "Staybook\n\n" + mainHelp
	}
}

func renderHome(listings []domain.Listing, h *Handler) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Découvrir (%s)", categoryName(h.category))
	if h.query != "" {
		fmt.Fprintf(&b, " - « %s »", h.query)
	}
	b.WriteString("\n")
	if len(listings) == 0 {
		b.WriteString("Aucun logement ne correspond à votre recherche.")
		return b.String()
	}
	for _, l := range listings {
		b.WriteString(listingLine(l, h.app.Favorites.IsFavorite(l.ID)))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func listingLine(l domain.Listing, liked bool) string {
	heart := ""
	if liked {
		heart = " ♥"
	}
	return fmt.Sprintf("%s. %s - %s - %s /nuit - ★ %s%s", l.ID, l.Title, l.Location, l.Price, l.Rating, heart)
}

func categoryName(id string) string {
	for _, c := range catalog.Categories {
		if c.ID == id {
			return c.Name
		}
	}
	return "Tout"
}

func renderListing(l domain.Listing, liked bool, r booking.Range) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n%s par nuit - ★ %s\n", l.Title, l.Location, l.Price, l.Rating)
	if cover := l.Cover(); cover != "" {
		fmt.Fprintf(&b, "%s\n", cover)
	}
	if liked {
		b.WriteString("♥ Dans vos favoris\n")
	}
	fmt.Fprintf(&b, "Dates: %s", r.Label())
	if r.Complete() {
		q := booking.NewQuote(l.Price, r)
		fmt.Fprintf(&b, "\n%d nuit(s) - Total: %s\n/book pour réserver", q.Nights, q.TotalLabel())
	}
	return b.String()
}

func renderFavorites(favs []domain.Listing) string {
	if len(favs) == 0 {
		return "Aucun favori pour le moment."
	}
	lines := make([]string, 0, len(favs)+1)
	lines = append(lines, fmt.Sprintf("Favoris (%d)", len(favs)))
	for _, l := range favs {
		lines = append(lines, listingLine(l, true))
	}
	return strings.Join(lines, "\n")
}

func renderBookings(items []domain.Booking) string {
	if len(items) == 0 {
		return "Aucune réservation."
	}
	lines := []string{"Mes réservations"}
	for _, b := range items {
		lines = append(lines, fmt.Sprintf("%s. %s (%s) - %s - %s [%s]", b.ID, b.Title, b.Location, b.Dates, b.Price, b.Status.Label()))
	}
	return strings.Join(lines, "\n")
}

func renderReceived(items []domain.ReceivedBooking) string {
	if len(items) == 0 {
		return "Aucune demande trouvée."
	}
	lines := []string{"Demandes reçues"}
	for _, b := range items {
		lines = append(lines, fmt.Sprintf("%s. %s - %s - %s - %s [%s]", b.ID, b.Guest, b.Property, b.Dates, b.Price, b.Status.Label()))
	}
	return strings.Join(lines, "\n")
}

func adLine(ad ads.Ad, blocks int) string {
	line := fmt.Sprintf("%s. %s (%s) - %s %s [%s]", ad.ID, ad.Title, ad.Location, ad.Price, catalog.Currency, ad.Status)
	if blocks > 0 {
		line += fmt.Sprintf(" - %d blocage(s)", blocks)
	}
	return line
}

func renderAds(items []ads.Ad, blocks *ads.Unavailabilities) string {
	if len(items) == 0 {
		return "Aucune annonce. Publiez-en une avec /newad."
	}
	lines := []string{fmt.Sprintf("Mes annonces (%d)", len(items))}
	for _, ad := range items {
		lines = append(lines, adLine(ad, blocks.Count(ad.ID)))
	}
	return strings.Join(lines, "\n")
}

func renderAd(ad ads.Ad, blocks int) string {
	lines := []string{
		adLine(ad, blocks),
		ad.Description,
		fmt.Sprintf("%d photo(s)", len(ad.Photos)),
	}
	if cover := ad.Cover(); cover != "" {
		lines = append(lines, cover)
	}
	lines = append(lines, fmt.Sprintf("/availability %s  /block %s <début> <fin> <motif>  /deletead %s", ad.ID, ad.ID, ad.ID))
	return strings.Join(lines, "\n")
}

func renderAvailability(ad ads.Ad, f ads.Filter, blocks *ads.Unavailabilities) string {
	items := blocks.List(ad.ID, f)
	header := fmt.Sprintf("Disponibilités - %s [%s]", ad.Title, f.Label())
	if len(items) == 0 {
		switch f {
		case ads.FilterUpcoming:
			return header + "\nAucun blocage à venir\nToutes les dates futures sont disponibles."
		case ads.FilterPast:
			return header + "\nHistorique vide\nAucun blocage passé enregistré."
		default:
			return header + "\nAucune indisponibilité\nLe calendrier de " + ad.Title + " est libre."
		}
	}
	lines := []string{header}
	for _, u := range items {
		lines = append(lines, fmt.Sprintf("Du %s au %s - %s [%s]",
			u.Start.Format("02/01/2006"), u.End.Format("02/01/2006"), u.Reason, blocks.StatusOf(u).Label()))
	}
	return strings.Join(lines, "\n")
}

func renderNewAd(photos int) string {
	return fmt.Sprintf("Nouvelle annonce.\nEnvoyez les photos du logement (%d reçue(s)), puis:\n%s", photos, newAdUsage)
}

func renderNotifications(items []domain.Notification, unread int) string {
	lines := []string{fmt.Sprintf("Notifications (%d non lue(s))", unread)}
	for _, n := range items {
		dot := "•"
		if n.Read {
			dot = " "
		}
		lines = append(lines, fmt.Sprintf("%s %s. %s - %s", dot, n.ID, n.Title, n.Time))
	}
	return strings.Join(lines, "\n")
}

func renderNotification(n domain.Notification) string {
	text := fmt.Sprintf("%s\n%s\n%s", n.Title, n.Time, n.Body)
	if n.Listing != nil {
		text += fmt.Sprintf("\n\n%s - %s - %s /nuit", n.Listing.Title, n.Listing.Location, n.Listing.Price)
	}
	return text
}

func modeLabel(host bool) string {
	if host {
		return "Mode Propriétaire"
	}
	return "Mode Client"
}

func renderProfile(u *domain.User, host bool) string {
	lines := []string{u.DisplayName(), u.Email, modeLabel(host)}
	if m := u.Metadata; m.City != "" || m.Neighborhood != "" {
		lines = append(lines, strings.Trim(m.Neighborhood+", "+m.City, ", "))
	}
	if m := u.Metadata; m.Phone != "" {
		lines = append(lines, m.Phone)
	}
	if avatar := u.Avatar(); avatar != "" {
		lines = append(lines, avatar)
	}
	return strings.Join(lines, "\n")
}
