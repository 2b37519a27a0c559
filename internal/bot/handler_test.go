package bot

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app"
	"staybook/internal/auth/authtest"
	"staybook/internal/config"
	"staybook/internal/media"
	"staybook/internal/session"
)

const ownerID = 4242

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.ErrorLevel)
	return l
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (s *fakeSender) Send(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (s *fakeSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

type memBucket struct {
	mu    sync.Mutex
	paths []string
}

func (b *memBucket) Upload(_ context.Context, p string, r io.Reader, _ string) error {
	if _, err := io.ReadAll(r); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paths = append(b.paths, p)
	return nil
}

func (b *memBucket) PublicURL(p string) (string, error) {
	return "https://cdn.example/" + p, nil
}

// setupHandler starts an app against a fake auth service with the bot as navigator.
func setupHandler(t *testing.T) (*Handler, *fakeSender, *authtest.Server) {
	t.Helper()
	srv := authtest.NewServer(t)
	dir := t.TempDir()
	cfg := config.Config{
		SupabaseURL:     srv.URL,
		SupabaseAnonKey: authtest.AnonKey,
		StorageDriver:   "sqlite",
		SQLitePath:      filepath.Join(dir, "staybook.db"),
		HTTPTimeout:     5 * time.Second,
	}
	a, err := app.New(cfg, testLogger(), app.WithBucket(&memBucket{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Stop(context.Background()) })

	sender := &fakeSender{}
	h := newHandler(a, ownerID, sender, testLogger())
	h.now = func() time.Time { return time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC) }
	return h, sender, srv
}

func TestHandler_LoadingUntilGateResolves(t *testing.T) {
	h, sender, _ := setupHandler(t)

	assert.Equal(t, "Chargement...", h.dispatch(context.Background(), "/home"))

	h.app.Start(context.Background(), h)
	msgs := sender.messages()
	require.Len(t, msgs, 1, "the entry screen is pushed once the session is known")
	assert.Equal(t, int64(ownerID), msgs[0].chatID)
	assert.Contains(t, msgs[0].text, "Connectez-vous")
	assert.Equal(t, session.LoginRoute, h.Current())
}

func TestHandler_GuestJourney(t *testing.T) {
	h, sender, srv := setupHandler(t)
	srv.AddUser("awa@example.com", "secret1", map[string]any{"full_name": "Awa Diop"})
	ctx := context.Background()
	h.app.Start(ctx, h)
	pushed := len(sender.messages())

	reply := h.dispatch(ctx, "/favorites")
	assert.Contains(t, reply, "Connectez-vous", "main screens redirect to login")
	assert.Equal(t, session.LoginRoute, h.Current())

	assert.Equal(t, "Erreur: Veuillez remplir tous les champs.", h.dispatch(ctx, "/login awa@example.com"))
	assert.Equal(t, "Erreur: Invalid login credentials", h.dispatch(ctx, "/login awa@example.com nope"))

	reply = h.dispatch(ctx, "/login awa@example.com secret1")
	assert.True(t, strings.HasPrefix(reply, "Connexion réussie."))
	assert.Contains(t, reply, "Découvrir (Tout)")
	assert.Equal(t, session.HomeRoute, h.Current())
	assert.Len(t, sender.messages(), pushed, "command replies are not pushed twice")

	reply = h.dispatch(ctx, "/register")
	assert.Contains(t, reply, "Découvrir", "auth screens redirect home when signed in")
	assert.Equal(t, session.HomeRoute, h.Current())

	assert.Contains(t, h.dispatch(ctx, "/like 3"), "♥ Ajouté aux favoris: Villa Tahiba - Cocody Prestige")
	assert.Contains(t, h.dispatch(ctx, "/favorites"), "Favoris (1)")

	reply = h.dispatch(ctx, "/home villa")
	assert.Contains(t, reply, "3. Villa Tahiba - Cocody Prestige - Cocody, Abidjan - 120.000 FCFA /nuit - ★ 4.9 ♥")
	assert.NotContains(t, reply, "Luxury Suite")

	h.dispatch(ctx, "/home")
	assert.Contains(t, h.dispatch(ctx, "/category beach"), "Villa Palmera")
	assert.Contains(t, h.dispatch(ctx, "/category castle"), "Catégorie inconnue")

	assert.Equal(t, "Choisissez d'abord un logement: /listing <id>", h.dispatch(ctx, "/dates 2026-03-10"))
	assert.Contains(t, h.dispatch(ctx, "/listing 1"), "Dates: Choisir vos dates")
	assert.Equal(t, "Impossible de choisir une date passée.", h.dispatch(ctx, "/dates 2026-02-27"))
	assert.Equal(t, "Date invalide, format AAAA-MM-JJ.", h.dispatch(ctx, "/dates demain"))
	assert.Equal(t, "Veuillez sélectionner vos dates.", h.dispatch(ctx, "/book"))
	h.dispatch(ctx, "/dates 2026-03-10")
	reply = h.dispatch(ctx, "/dates 2026-03-13")
	assert.Contains(t, reply, "3 nuit(s) - Total: 255.000 FCFA")

	reply = h.dispatch(ctx, "/book")
	assert.Contains(t, reply, "Réservation envoyée !")
	assert.Contains(t, reply, "10/03/2026 - 13/03/2026 - 255.000 FCFA [En attente]")
	assert.Contains(t, h.dispatch(ctx, "/bookings pending"), "Villa Horizon - Piscine Infinity")
	assert.Contains(t, h.dispatch(ctx, "/bookings unknown"), "Statut inconnu")
	assert.Equal(t, "Réservation annulée.", h.dispatch(ctx, "/cancel 2"))
	assert.Equal(t, "Réservation introuvable.", h.dispatch(ctx, "/cancel 2"))

	assert.Equal(t, "Réservé au mode propriétaire: /hostmode on", h.dispatch(ctx, "/received"))
	assert.Equal(t, "Mode Propriétaire", h.dispatch(ctx, "/hostmode on"))
	reply = h.dispatch(ctx, "/received declined boris")
	assert.Contains(t, reply, "Boris V. - Villa Oasis")
	assert.NotContains(t, reply, "Awa Diop")

	assert.Contains(t, h.dispatch(ctx, "/notifications"), "(2 non lue(s))")
	assert.Contains(t, h.dispatch(ctx, "/read 1"), "Villa Oasis - Assinie, Côte d'Ivoire")
	assert.Contains(t, h.dispatch(ctx, "/notifications"), "(1 non lue(s))")
	assert.Equal(t, "Notification introuvable.", h.dispatch(ctx, "/read 9"))

	reply = h.dispatch(ctx, "/profile")
	assert.Contains(t, reply, "Awa Diop")
	assert.Contains(t, reply, "Mode Propriétaire")

	assert.Equal(t, "Erreur: Les mots de passe ne correspondent pas.", h.dispatch(ctx, "/password secret1 a b"))
	assert.Equal(t, "Votre mot de passe a été mis à jour.", h.dispatch(ctx, "/password secret1 secret2 secret2"))

	reply = h.dispatch(ctx, "/logout")
	assert.True(t, strings.HasPrefix(reply, "Vous êtes déconnecté."))
	assert.Contains(t, reply, "Connectez-vous")
	assert.Equal(t, session.LoginRoute, h.Current())

	assert.True(t, h.app.Favorites.IsFavorite("3"), "favorites are kept across sign-out")
}

func TestHandler_OwnerRegistration(t *testing.T) {
	h, _, srv := setupHandler(t)
	ctx := context.Background()
	h.app.Start(ctx, h)

	reply := h.dispatch(ctx, "/register proprietaire boris@example.com secret1 Boris V.")
	assert.Equal(t, "Erreur: Veuillez fournir les deux photos pour le profil propriétaire.", reply)
	assert.Zero(t, srv.Calls("POST /signup"))

	assert.Contains(t, h.addPhoto(media.Photo{Ext: ".jpg", Data: []byte("id")}), "Pièce d'identité reçue")
	assert.Contains(t, h.addPhoto(media.Photo{Ext: ".jpg", Data: []byte("face")}), "Selfie reçu")

	reply = h.dispatch(ctx, "/register proprietaire boris@example.com secret1 Boris V.")
	assert.Contains(t, reply, "Compte créé.")
	assert.Contains(t, reply, "boris@example.com")
	assert.Equal(t, session.RouteFor(session.ScreenVerifyEmail), h.Current())

	meta := srv.Metadata("boris@example.com")
	assert.Equal(t, "Boris V.", meta["full_name"])
	assert.Contains(t, meta["photo_piece_url"], "https://cdn.example/pieces/")
	assert.Contains(t, meta["photo_face_url"], "https://cdn.example/selfies/")

	assert.Equal(t, "Erreur: Veuillez entrer le code à 6 chiffres.", h.dispatch(ctx, "/verify 12"))
	assert.Equal(t, "Un nouveau code a été envoyé.", h.dispatch(ctx, "/resend"))

	reply = h.dispatch(ctx, "/verify "+srv.OTP("boris@example.com"))
	assert.True(t, strings.HasPrefix(reply, "Votre compte est validé !"))
	assert.Equal(t, session.HomeRoute, h.Current())
	assert.Equal(t, "Les photos ne sont utilisées que pour l'inscription ou une nouvelle annonce (/newad).", h.addPhoto(media.Photo{}))
}

func TestHandler_HostAds(t *testing.T) {
	h, _, srv := setupHandler(t)
	srv.AddUser("boris@example.com", "secret1", map[string]any{"full_name": "Boris V."})
	ctx := context.Background()
	h.app.Start(ctx, h)
	require.Contains(t, h.dispatch(ctx, "/login boris@example.com secret1"), "Connexion réussie.")

	for _, cmd := range []string{"/ads", "/ad 1", "/deletead 1", "/availability 1", "/block 1", "/newad"} {
		assert.Equal(t, hostOnly, h.dispatch(ctx, cmd), cmd)
	}
	assert.Equal(t, "Mode Propriétaire", h.dispatch(ctx, "/hostmode on"))

	reply := h.dispatch(ctx, "/ads")
	assert.Contains(t, reply, "Mes annonces (4)")
	assert.Contains(t, reply, "1. Villa Horizon (Assinie, CI) - 120.000 FCFA [Actif] - 4 blocage(s)")
	assert.Contains(t, reply, "4. L'Oasis Bleue (Grand-Bassam) - 95.000 FCFA [En attente]")

	assert.Contains(t, h.dispatch(ctx, "/ad 2"), "Studio moderne au centre des affaires.")
	assert.Equal(t, "Annonce introuvable.", h.dispatch(ctx, "/ad 99"))

	t.Run("availability", func(t *testing.T) {
		reply := h.dispatch(ctx, "/availability 1 termine")
		assert.Contains(t, reply, "Du 15/06/2024 au 20/06/2024 - Vacances familiales [Terminé]")
		assert.Contains(t, reply, "Du 24/12/2023 au 26/12/2023 - Fêtes fin d'année [Terminé]")

		assert.Contains(t, h.dispatch(ctx, "/availability 2"), "Aucune indisponibilité\nLe calendrier de Luxury Suite est libre.")
		assert.Contains(t, h.dispatch(ctx, "/availability 2 termine"), "Historique vide")
		assert.Equal(t, "Filtre inconnu. Choix: tous, avenir, termine", h.dispatch(ctx, "/availability 1 demain"))
	})

	t.Run("block", func(t *testing.T) {
		assert.Equal(t, "Date invalide, format AAAA-MM-JJ.", h.dispatch(ctx, "/block 2 10/01/2030 2030-01-12 Travaux"))
		assert.Equal(t, "Erreur: Veuillez indiquer un motif.", h.dispatch(ctx, "/block 2 2030-01-10 2030-01-12"))
		assert.Equal(t, "Erreur: La date de fin doit suivre la date de début.", h.dispatch(ctx, "/block 2 2030-01-12 2030-01-10 Travaux"))
		assert.Equal(t, "Annonce introuvable.", h.dispatch(ctx, "/block 99 2030-01-10 2030-01-12 Travaux"))
		assert.Contains(t, h.dispatch(ctx, "/availability 2 avenir"), "Aucun blocage à venir")

		reply := h.dispatch(ctx, "/block 2 2030-01-10 2030-01-12 Travaux salle de bain")
		assert.True(t, strings.HasPrefix(reply, "Indisponibilité enregistrée."))
		assert.Contains(t, reply, "Du 10/01/2030 au 12/01/2030 - Travaux salle de bain [À venir]")
		assert.Contains(t, h.dispatch(ctx, "/availability 2 avenir"), "Travaux salle de bain [À venir]")
	})

	t.Run("new ad", func(t *testing.T) {
		assert.Contains(t, h.dispatch(ctx, "/newad"), "(0 reçue(s))")
		assert.Equal(t, session.RouteFor(session.ScreenNewAd), h.Current())
		assert.Equal(t, "Erreur: Titre et prix obligatoires.", h.dispatch(ctx, "/newad Villa Azur | | Abidjan"))
		assert.Equal(t, "Erreur: Ajoutez au moins une photo pour valider.", h.dispatch(ctx, "/newad Villa Azur | 50000 | Abidjan | Vue mer"))

		assert.Contains(t, h.addPhoto(media.Photo{Ext: ".png", Data: []byte("salon")}), "Photo 1 reçue.")
		reply := h.dispatch(ctx, "/newad Villa Azur | 50000 | Abidjan | Vue mer")
		assert.True(t, strings.HasPrefix(reply, "Annonce publiée !"))
		assert.Contains(t, reply, "Villa Azur (Abidjan) - 50.000 FCFA [En attente]")

		items := h.app.Ads.List()
		require.Len(t, items, 5)
		published := items[4]
		require.Len(t, published.Photos, 1)
		assert.True(t, strings.HasPrefix(published.Cover(), "https://cdn.example/annonces/"))
		assert.True(t, strings.HasSuffix(published.Cover(), ".png"))
		assert.Contains(t, h.dispatch(ctx, "/newad"), "(0 reçue(s))", "photos are cleared once published")
	})

	assert.Equal(t, "Annonce supprimée.", h.dispatch(ctx, "/deletead 4"))
	assert.Equal(t, "Annonce introuvable.", h.dispatch(ctx, "/deletead 4"))
	assert.NotContains(t, h.dispatch(ctx, "/ads"), "L'Oasis Bleue")
	assert.Contains(t, h.dispatch(ctx, "/help"), hostHelp)
}

func TestHandler_Misc(t *testing.T) {
	h, _, _ := setupHandler(t)
	ctx := context.Background()
	h.app.Start(ctx, h)

	assert.Equal(t, authHelp, h.dispatch(ctx, "bonjour"))
	assert.Contains(t, h.dispatch(ctx, "/dance"), "Commande inconnue.")
	assert.Contains(t, h.dispatch(ctx, "/start@staybook_bot"), "Connectez-vous")
	assert.Equal(t, "Aucune inscription en attente. Utilisez /register.", h.dispatch(ctx, "/verify 123456"))
}

func TestHandler_Authorized(t *testing.T) {
	h := newHandler(nil, ownerID, &fakeSender{}, testLogger())

	assert.True(t, h.authorized(&models.Update{Message: &models.Message{From: &models.User{ID: ownerID}}}))
	assert.False(t, h.authorized(&models.Update{Message: &models.Message{From: &models.User{ID: 1}}}))
	assert.False(t, h.authorized(&models.Update{}))
}
