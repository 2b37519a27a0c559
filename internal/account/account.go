// Package account implements the sign-in, sign-up and profile flows. Every flow
// validates its input before calling the auth service, and calls it once.
package account

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"staybook/internal/auth"
	"staybook/internal/domain"
	"staybook/internal/media"
)

// OTPLength is the number of characters of the emailed sign-up code.
const OTPLength = 6

// ValidationError is a form error detected before any external call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err is a form error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PhotoUploader stores identity verification photos.
type PhotoUploader interface {
	UploadKYC(ctx context.Context, folder, ext string, r io.Reader) (string, error)
}

// RegisterForm holds the sign-up screen fields.
type RegisterForm struct {
	FullName     string
	Email        string
	Password     string
	Phone        string
	City         string
	Neighborhood string
	IsOwner      bool

	// IDCard and Selfie are required for owners.
	IDCard *media.Photo
	Selfie *media.Photo
}

// RegisterResult tells the caller where to go after a sign-up.
type RegisterResult struct {
	User domain.User
	// PendingVerification is set when the account must be confirmed with the
	// emailed code before a session exists.
	PendingVerification bool
}

// Profile holds the editable profile fields.
type Profile struct {
	FullName     string
	Phone        string
	City         string
	Neighborhood string
}

// Service runs the account flows against an auth provider.
type Service struct {
	provider auth.Provider
	photos   PhotoUploader
	log      logrus.FieldLogger
}

// NewService creates the account flows. photos may be nil, in which case
// owner sign-ups fail.
func NewService(provider auth.Provider, photos PhotoUploader, logger logrus.FieldLogger) *Service {
	return &Service{
		provider: provider,
		photos:   photos,
		log:      logger.WithField("component", "account"),
	}
}

var errPhotosUnavailable = errors.New("photo storage is not configured")

// Login signs in with email and password.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, &ValidationError{Field: "email", Message: "Veuillez remplir tous les champs."}
	}
	return s.provider.SignIn(ctx, email, password)
}

// Register creates an account. Owner photos are uploaded first and their
// URLs stored in the profile metadata.
func (s *Service) Register(ctx context.Context, form RegisterForm) (*RegisterResult, error) {
	form.Email = strings.TrimSpace(form.Email)
	form.FullName = strings.TrimSpace(form.FullName)
	if form.Email == "" || form.Password == "" || form.FullName == "" {
		return nil, &ValidationError{Field: "form", Message: "Le nom, l'email et le mot de passe sont obligatoires."}
	}
	if form.IsOwner && (form.IDCard == nil || form.Selfie == nil) {
		return nil, &ValidationError{Field: "photos", Message: "Veuillez fournir les deux photos pour le profil propriétaire."}
	}

	log := s.log.WithFields(logrus.Fields{"email": form.Email, "is_owner": form.IsOwner})
	log.Info("Attempting to register")

	metadata := domain.UserMetadata{
		FullName:     form.FullName,
		Phone:        form.Phone,
		City:         form.City,
		Neighborhood: form.Neighborhood,
		IsOwner:      form.IsOwner,
	}
	if form.IsOwner {
		if s.photos == nil {
			return nil, errPhotosUnavailable
		}
		var err error
		if metadata.PhotoPieceURL, err = s.upload(ctx, media.FolderPieces, form.IDCard); err != nil {
			return nil, err
		}
		if metadata.PhotoFaceURL, err = s.upload(ctx, media.FolderSelfies, form.Selfie); err != nil {
			return nil, err
		}
	}

	result, err := s.provider.SignUp(ctx, auth.SignUpParams{
		Email:    form.Email,
		Password: form.Password,
		Metadata: metadata,
	})
	if err != nil {
		return nil, err
	}
	log.WithField("pending_verification", result.NeedsVerification()).Info("Registered successfully")
	return &RegisterResult{User: result.User, PendingVerification: result.NeedsVerification()}, nil
}

func (s *Service) upload(ctx context.Context, folder string, p *media.Photo) (string, error) {
	url, err := s.photos.UploadKYC(ctx, folder, p.Ext, bytes.NewReader(p.Data))
	if err != nil {
		return "", fmt.Errorf("failed to upload %s photo: %w", folder, err)
	}
	return url, nil
}

// Verify confirms the account of email with the emailed code.
func (s *Service) Verify(ctx context.Context, email, code string) (*domain.Session, error) {
	code = strings.TrimSpace(code)
	if len(code) != OTPLength {
		return nil, &ValidationError{Field: "code", Message: "Veuillez entrer le code à 6 chiffres."}
	}
	return s.provider.VerifyOTP(ctx, strings.TrimSpace(email), code)
}

// Resend asks for a new sign-up code.
func (s *Service) Resend(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "Adresse email manquante."}
	}
	return s.provider.ResendOTP(ctx, email)
}

// Profile returns the signed-in user.
func (s *Service) Profile(ctx context.Context) (*domain.User, error) {
	return s.provider.User(ctx)
}

// UpdateProfile saves the editable profile fields.
func (s *Service) UpdateProfile(ctx context.Context, p Profile) (*domain.User, error) {
	return s.provider.UpdateUser(ctx, domain.UserMetadata{
		FullName:     strings.TrimSpace(p.FullName),
		Phone:        strings.TrimSpace(p.Phone),
		City:         strings.TrimSpace(p.City),
		Neighborhood: strings.TrimSpace(p.Neighborhood),
	})
}

// ChangePassword replaces the password. The current password is required by
// the form but checked by nobody: the service only needs the session.
func (s *Service) ChangePassword(ctx context.Context, current, next, confirm string) error {
	if current == "" || next == "" || confirm == "" {
		return &ValidationError{Field: "password", Message: "Veuillez remplir tous les champs."}
	}
	if next != confirm {
		return &ValidationError{Field: "confirm", Message: "Les mots de passe ne correspondent pas."}
	}
	if err := s.provider.UpdatePassword(ctx, next); err != nil {
		return err
	}
	s.log.Info("Password changed successfully")
	return nil
}

// SignOut ends the session.
func (s *Service) SignOut(ctx context.Context) error {
	return s.provider.SignOut(ctx)
}
