package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/koumale-backend/internal/users"
	"github.com/angelmondragon/koumale-backend/internal/vendors"
	pkgAuth "github.com/angelmondragon/koumale-backend/pkg/auth"
	"github.com/angelmondragon/koumale-backend/pkg/config"
	"github.com/angelmondragon/koumale-backend/pkg/db"
	"github.com/angelmondragon/koumale-backend/pkg/db/models"
	"github.com/angelmondragon/koumale-backend/pkg/email"
	"github.com/angelmondragon/koumale-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
	"github.com/angelmondragon/koumale-backend/pkg/security"
	"github.com/angelmondragon/koumale-backend/pkg/tasks"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	verificationTTL           = 10 * time.Minute
	minPasswordLength         = 6
	taskKindVerificationEmail = "auth.verification_email"

	MessageVerifyEmail   = "registration successful, check your email for the verification code"
	MessageEmailVerified = "email verified"
	MessagePendingVendor = "vendor account pending approval"
	MessageCodeSent      = "verification code sent"
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Session, error)
	Login(ctx context.Context, req LoginRequest) (*Session, error)
	RegisterVendor(ctx context.Context, req RegisterVendorRequest) (*Session, error)
	VerifyEmail(ctx context.Context, req VerifyEmailRequest) (*Session, error)
	ResendVerification(ctx context.Context, req ResendVerificationRequest) error
	CheckBusinessName(ctx context.Context, name string) (bool, error)
	Me(ctx context.Context, userID uuid.UUID) (*Session, error)
	ApproveVendor(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
	RejectVendor(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
}

type usersRepository interface {
	Create(ctx context.Context, user *models.User) error
	Save(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	UpdateRoleStatus(ctx context.Context, id uuid.UUID, role enums.UserRole, status enums.UserStatus) error
}

type vendorDirectory interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Vendor, error)
	CheckBusinessName(ctx context.Context, name string) (bool, error)
	CreateProfile(ctx context.Context, ownerID uuid.UUID, input vendors.ProfileInput) (*models.Vendor, error)
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) error
}

// Announcer is told about account lifecycle events.
type Announcer interface {
	UserRegistered(ctx context.Context, user models.User)
	VendorRegistered(ctx context.Context, vendor models.Vendor)
	VendorApproved(ctx context.Context, vendor models.Vendor)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users     usersRepository
	Vendors   vendorDirectory
	Announcer Announcer
	Mailer    email.Sender
	Tasks     tasks.Submitter
	JWT       config.JWTConfig
	Password  config.PasswordConfig
	Logg      *logger.Logger
	Now       func() time.Time
}

type service struct {
	users     usersRepository
	vendors   vendorDirectory
	announcer Announcer
	mailer    email.Sender
	tasks     tasks.Submitter
	jwtCfg    config.JWTConfig
	pwCfg     config.PasswordConfig
	logg      *logger.Logger
	now       func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Vendors == nil {
		return nil, fmt.Errorf("vendor directory required")
	}
	if params.Announcer == nil {
		return nil, fmt.Errorf("announcer required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if params.Tasks == nil {
		return nil, fmt.Errorf("task submitter required")
	}
	if params.Logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = db.NowUTC
	}
	return &service{
		users:     params.Users,
		vendors:   params.Vendors,
		announcer: params.Announcer,
		mailer:    params.Mailer,
		tasks:     params.Tasks,
		jwtCfg:    params.JWT,
		pwCfg:     params.Password,
		logg:      params.Logg,
		now:       now,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	address := normalizeEmail(req.Email)
	role := req.Role
	if role == "" {
		role = enums.UserRoleClient
	}
	if role != enums.UserRoleClient && role != enums.UserRoleVendor {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role must be client or vendor")
	}

	existing, err := s.findByEmail(ctx, address)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email already registered")
	}

	status := enums.UserStatusApproved
	if role == enums.UserRoleVendor {
		status = enums.UserStatusPending
	}
	user, err := s.createUnverified(ctx, address, req.Password, req.FirstName, req.LastName, role, status)
	if err != nil {
		return nil, err
	}

	return &Session{
		User:                 users.FromModel(user),
		RequiresVerification: true,
		Message:              MessageVerifyEmail,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	address := normalizeEmail(req.Email)
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.findByEmail(ctx, address)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	valid, err := security.VerifyPassword(req.Password, *user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if !user.EmailVerified {
		return nil, unverifiedError(user.Email)
	}
	if user.IsPendingVendor() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, MessagePendingVendor)
	}
	if security.NeedsRehash(*user.PasswordHash, s.pwCfg) {
		s.upgradeHash(ctx, user, req.Password)
	}

	return s.session(ctx, user)
}

// upgradeHash re-encodes a password hashed under older costs. Failure only
// logs; the login still succeeds.
func (s *service) upgradeHash(ctx context.Context, user *models.User, password string) {
	hash, err := security.HashPassword(password, s.pwCfg)
	if err == nil {
		user.PasswordHash = &hash
		err = s.users.Save(ctx, user)
	}
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "auth.password_rehash_failed")
	}
}

// RegisterVendor converts an existing client or creates a new account, then
// stores the storefront profile. The storefront stays hidden until approval.
func (s *service) RegisterVendor(ctx context.Context, req RegisterVendorRequest) (*Session, error) {
	address := normalizeEmail(req.Email)
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	ctx = s.logg.WithField(ctx, "email", address)

	available, err := s.vendors.CheckBusinessName(ctx, req.BusinessName)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business name already in use").
			WithDetails(map[string]string{"businessName": req.BusinessName})
	}

	user, err := s.findByEmail(ctx, address)
	if err != nil {
		return nil, err
	}
	created := user == nil
	if created {
		if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "firstName and lastName are required")
		}
		user, err = s.createUnverified(ctx, address, req.Password, req.FirstName, req.LastName, enums.UserRoleVendor, enums.UserStatusPending)
		if err != nil {
			return nil, err
		}
	} else {
		if user.Role != enums.UserRoleClient {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "account is already a vendor")
		}
		if !user.EmailVerified {
			return nil, unverifiedError(user.Email)
		}
		if err := s.users.UpdateRoleStatus(ctx, user.ID, enums.UserRoleVendor, enums.UserStatusPending); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "convert user to vendor")
		}
		user.Role = enums.UserRoleVendor
		user.Status = enums.UserStatusPending
	}

	vendor, err := s.vendors.CreateProfile(ctx, user.ID, vendors.ProfileInput{
		BusinessName: req.BusinessName,
		Description:  req.Description,
		ContactPhone: req.ContactPhone,
		WhatsappLink: req.WhatsappLink,
		TelegramLink: req.TelegramLink,
		Address:      req.Address,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Logo:         req.Logo,
		CoverImage:   req.CoverImage,
		Documents:    req.Documents,
	})
	if err != nil {
		return nil, err
	}
	s.announcer.VendorRegistered(ctx, *vendor)
	s.logg.Info(s.logg.WithVendorID(ctx, vendor.ID.String()), "auth.vendor_registered")

	if created {
		return &Session{
			User:                 users.FromModel(user),
			Vendor:               vendor,
			RequiresVerification: true,
			Message:              MessageVerifyEmail,
		}, nil
	}

	token, err := s.mint(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: users.FromModel(user), Vendor: vendor, Message: MessagePendingVendor}, nil
}

func (s *service) VerifyEmail(ctx context.Context, req VerifyEmailRequest) (*Session, error) {
	user, err := s.loadByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user.EmailVerified {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email already verified")
	}
	if user.VerificationCode == nil || user.VerificationExpiresAt == nil ||
		!s.now().Before(*user.VerificationExpiresAt) ||
		!security.CodesEqual(*user.VerificationCode, strings.TrimSpace(req.Code)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired verification code")
	}

	user.EmailVerified = true
	user.VerificationCode = nil
	user.VerificationExpiresAt = nil
	if err := s.users.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark email verified")
	}

	if user.IsPendingVendor() {
		vendor, err := s.vendorOf(ctx, user)
		if err != nil {
			return nil, err
		}
		return &Session{User: users.FromModel(user), Vendor: vendor, Message: MessagePendingVendor}, nil
	}
	session, err := s.session(ctx, user)
	if err != nil {
		return nil, err
	}
	session.Message = MessageEmailVerified
	return session, nil
}

func (s *service) ResendVerification(ctx context.Context, req ResendVerificationRequest) error {
	user, err := s.loadByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return pkgerrors.New(pkgerrors.CodeValidation, "email already verified")
	}
	code, err := s.issueCode(user)
	if err != nil {
		return err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store verification code")
	}
	s.sendVerification(ctx, user.Email, code)
	return nil
}

func (s *service) CheckBusinessName(ctx context.Context, name string) (bool, error) {
	return s.vendors.CheckBusinessName(ctx, name)
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*Session, error) {
	user, err := s.loadByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	vendor, err := s.vendorOf(ctx, user)
	if err != nil {
		return nil, err
	}
	return &Session{User: users.FromModel(user), Vendor: vendor}, nil
}

// ApproveVendor makes a vendor account and its storefront public.
func (s *service) ApproveVendor(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	user, err := s.loadByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != enums.UserRoleVendor {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is not a vendor")
	}
	if err := s.users.UpdateRoleStatus(ctx, user.ID, enums.UserRoleVendor, enums.UserStatusApproved); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve vendor")
	}
	wasPending := user.Status == enums.UserStatusPending
	user.Status = enums.UserStatusApproved

	vendor, err := s.vendorOf(ctx, user)
	if err != nil {
		return nil, err
	}
	if vendor != nil && wasPending {
		s.announcer.VendorApproved(ctx, *vendor)
	}
	s.logg.Info(s.logg.WithField(ctx, "user_id", user.ID.String()), "auth.vendor_approved")
	return users.FromModel(user), nil
}

// RejectVendor drops the storefront of a pending vendor and turns the account
// back into a client.
func (s *service) RejectVendor(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	user, err := s.loadByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsPendingVendor() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is not a pending vendor")
	}
	if err := s.vendors.DeleteByOwner(ctx, user.ID); err != nil {
		return nil, err
	}
	if err := s.users.UpdateRoleStatus(ctx, user.ID, enums.UserRoleClient, enums.UserStatusApproved); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject vendor")
	}
	user.Role = enums.UserRoleClient
	user.Status = enums.UserStatusApproved
	s.logg.Info(s.logg.WithField(ctx, "user_id", user.ID.String()), "auth.vendor_rejected")
	return users.FromModel(user), nil
}

func (s *service) createUnverified(ctx context.Context, address, password, firstName, lastName string, role enums.UserRole, status enums.UserStatus) (*models.User, error) {
	if len(password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 6 characters")
	}
	hash, err := security.HashPassword(password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        address,
		PasswordHash: &hash,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Role:         role,
		Status:       status,
	}
	code, err := s.issueCode(user)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "email") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	s.sendVerification(ctx, user.Email, code)
	s.announcer.UserRegistered(ctx, *user)
	s.logg.Info(s.logg.WithField(ctx, "user_id", user.ID.String()), "auth.user_registered")
	return user, nil
}

func (s *service) issueCode(user *models.User) (string, error) {
	code, err := security.GenerateVerificationCode()
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification code")
	}
	expires := s.now().Add(verificationTTL)
	user.VerificationCode = &code
	user.VerificationExpiresAt = &expires
	return code, nil
}

func (s *service) sendVerification(ctx context.Context, to, code string) {
	s.tasks.Submit(ctx, taskKindVerificationEmail, func(ctx context.Context) error {
		msg, err := email.VerificationMessage(to, code, int(verificationTTL/time.Minute))
		if err != nil {
			return err
		}
		return s.mailer.Send(ctx, msg)
	})
}

func (s *service) session(ctx context.Context, user *models.User) (*Session, error) {
	token, err := s.mint(user)
	if err != nil {
		return nil, err
	}
	vendor, err := s.vendorOf(ctx, user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: users.FromModel(user), Vendor: vendor}, nil
}

func (s *service) mint(user *models.User) (string, error) {
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, nil
}

func (s *service) vendorOf(ctx context.Context, user *models.User) (*models.Vendor, error) {
	if user.Role != enums.UserRoleVendor {
		return nil, nil
	}
	vendor, err := s.vendors.GetByUserID(ctx, user.ID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return vendor, nil
}

func (s *service) findByEmail(ctx context.Context, address string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	return user, nil
}

func (s *service) loadByEmail(ctx context.Context, raw string) (*models.User, error) {
	user, err := s.findByEmail(ctx, normalizeEmail(raw))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return user, nil
}

func (s *service) loadByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func unverifiedError(address string) error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "email not verified").WithDetails(map[string]any{
		"requiresEmailVerification": true,
		"email":                     address,
	})
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
