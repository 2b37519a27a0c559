package account

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/auth"
	"staybook/internal/auth/authtest"
	"staybook/internal/media"
	"staybook/internal/storage"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.ErrorLevel)
	return l
}

type fakeUploader struct {
	folders []string
	err     error
}

func (u *fakeUploader) UploadKYC(_ context.Context, folder, ext string, r io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	u.folders = append(u.folders, folder)
	return "https://cdn.example/" + folder + "/photo." + ext, nil
}

// setupService wires the flows to a fake auth service.
func setupService(t *testing.T, photos PhotoUploader) (*Service, *authtest.Server) {
	t.Helper()
	srv := authtest.NewServer(t)
	kv, err := storage.NewBadgerStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	client := auth.NewClient(srv.URL, authtest.AnonKey, kv, testLogger())
	return NewService(client, photos, testLogger()), srv
}

func totalCalls(srv *authtest.Server) int {
	n := 0
	for _, e := range []string{"POST /token", "POST /signup", "POST /verify", "POST /resend", "PUT /user", "POST /logout"} {
		n += srv.Calls(e)
	}
	return n
}

func TestLogin(t *testing.T) {
	svc, srv := setupService(t, nil)
	srv.AddUser("awa@example.com", "secret1", nil)
	ctx := context.Background()

	_, err := svc.Login(ctx, "  ", "secret1")
	require.True(t, IsValidation(err))
	assert.Equal(t, "Veuillez remplir tous les champs.", err.Error())
	assert.Zero(t, totalCalls(srv), "validation happens before any call")

	_, err = svc.Login(ctx, "awa@example.com", "bad")
	require.Error(t, err)
	assert.False(t, IsValidation(err))
	assert.Equal(t, "Invalid login credentials", auth.UserMessage(err))

	session, err := svc.Login(ctx, " awa@example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "awa@example.com", session.User.Email)
}

func TestRegister_GuestNeedsVerification(t *testing.T) {
	svc, srv := setupService(t, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterForm{Email: "jm@example.com", Password: "secret1"})
	require.True(t, IsValidation(err))
	assert.Zero(t, totalCalls(srv))

	result, err := svc.Register(ctx, RegisterForm{
		FullName: "Jean Marc",
		Email:    "jm@example.com",
		Password: "secret1",
		City:     "Abidjan",
	})
	require.NoError(t, err)
	assert.True(t, result.PendingVerification)
	assert.Equal(t, "Abidjan", srv.Metadata("jm@example.com")["city"])

	_, err = svc.Verify(ctx, "jm@example.com", "123")
	require.True(t, IsValidation(err))
	assert.Zero(t, srv.Calls("POST /verify"))

	session, err := svc.Verify(ctx, "jm@example.com", srv.OTP("jm@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "Jean Marc", session.User.DisplayName())
}

func TestRegister_OwnerUploadsBothPhotos(t *testing.T) {
	photos := &fakeUploader{}
	svc, srv := setupService(t, photos)
	ctx := context.Background()

	form := RegisterForm{
		FullName: "Boris",
		Email:    "boris@example.com",
		Password: "secret1",
		IsOwner:  true,
		IDCard:   &media.Photo{Ext: "jpg", Data: []byte("id")},
	}
	_, err := svc.Register(ctx, form)
	require.True(t, IsValidation(err))
	assert.Equal(t, "photos", err.(*ValidationError).Field)
	assert.Empty(t, photos.folders)

	form.Selfie = &media.Photo{Ext: "png", Data: []byte("face")}
	_, err = svc.Register(ctx, form)
	require.NoError(t, err)
	assert.Equal(t, []string{media.FolderPieces, media.FolderSelfies}, photos.folders)

	meta := srv.Metadata("boris@example.com")
	assert.Equal(t, "https://cdn.example/pieces/photo.jpg", meta["photo_piece_url"])
	assert.Equal(t, "https://cdn.example/selfies/photo.png", meta["photo_face_url"])
	assert.Equal(t, true, meta["is_owner"])
}

func TestRegister_UploadFailureStopsSignUp(t *testing.T) {
	boom := errors.New("bucket offline")
	svc, srv := setupService(t, &fakeUploader{err: boom})

	_, err := svc.Register(context.Background(), RegisterForm{
		FullName: "Boris",
		Email:    "boris@example.com",
		Password: "secret1",
		IsOwner:  true,
		IDCard:   &media.Photo{Data: []byte("id")},
		Selfie:   &media.Photo{Data: []byte("face")},
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, srv.Calls("POST /signup"))
}

func TestRegister_ServiceRejection(t *testing.T) {
	svc, _ := setupService(t, nil)
	_, err := svc.Register(context.Background(), RegisterForm{FullName: "A", Email: "a@example.com", Password: "123"})
	require.Error(t, err)
	assert.Equal(t, "Password should be at least 6 characters.", auth.UserMessage(err))
}

func TestResend(t *testing.T) {
	svc, srv := setupService(t, nil)
	ctx := context.Background()

	require.True(t, IsValidation(svc.Resend(ctx, "")))
	_, err := svc.Register(ctx, RegisterForm{FullName: "A", Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NoError(t, svc.Resend(ctx, "a@example.com"))
	assert.Equal(t, 1, srv.Calls("POST /resend"))
}

func TestProfileAndPassword(t *testing.T) {
	svc, srv := setupService(t, nil)
	srv.AddUser("awa@example.com", "secret1", map[string]any{"full_name": "Awa"})
	ctx := context.Background()
	_, err := svc.Login(ctx, "awa@example.com", "secret1")
	require.NoError(t, err)

	user, err := svc.UpdateProfile(ctx, Profile{FullName: " Awa Diop ", City: "Abidjan", Neighborhood: "Cocody"})
	require.NoError(t, err)
	assert.Equal(t, "Awa Diop", user.Metadata.FullName)

	profile, err := svc.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Cocody", profile.Metadata.Neighborhood)

	err = svc.ChangePassword(ctx, "secret1", "secret2", "")
	assert.True(t, IsValidation(err))
	err = svc.ChangePassword(ctx, "secret1", "secret2", "secret3")
	require.True(t, IsValidation(err))
	assert.Equal(t, "Les mots de passe ne correspondent pas.", err.Error())
	assert.Equal(t, 1, srv.Calls("PUT /user"), "only the profile update reached the service")

	require.NoError(t, svc.ChangePassword(ctx, "secret1", "secret2", "secret2"))
	assert.Equal(t, "secret2", srv.Password("awa@example.com"))

	require.NoError(t, svc.SignOut(ctx))
	_, err = svc.Profile(ctx)
	assert.ErrorIs(t, err, auth.ErrNoSession)
}
