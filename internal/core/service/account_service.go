package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"

	"github.com/rl1809/showroom/internal/core/domain"
	"github.com/rl1809/showroom/internal/port"
)

type Registration struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Role        domain.Role
}

type AccountService struct {
	tx     port.Transactor
	users  port.UserRepository
	carts  port.CartRepository
	ledger port.LedgerRepository
	logger *zap.Logger
}

func NewAccountService(
	tx port.Transactor,
	users port.UserRepository,
	carts port.CartRepository,
	ledger port.LedgerRepository,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{tx: tx, users: users, carts: carts, ledger: ledger, logger: logger}
}

// Register creates the user together with its empty cart.
func (s *AccountService) Register(ctx context.Context, r Registration) (*domain.User, error) {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Role == "" {
		r.Role = domain.RoleStandard
	}

	switch {
	case r.FirstName == "" || r.LastName == "":
		return nil, domain.InvalidArgumentf("first and last name are required")
	case !strings.Contains(r.Email, "@"):
		return nil, domain.InvalidArgumentf("invalid email %q", r.Email)
	case !r.Role.Valid():
		return nil, domain.InvalidArgumentf("unknown role %q", r.Role)
	}

	var user *domain.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.CreateUser(ctx, domain.User{
			FirstName:   r.FirstName,
			LastName:    r.LastName,
			Email:       r.Email,
			PhoneNumber: strings.TrimSpace(r.PhoneNumber),
			Role:        r.Role,
		})
		if err != nil {
			return err
		}
		if _, err := s.carts.CreateCart(ctx, user.ID); err != nil {
			s.undoRegistration(ctx, user.ID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// undoRegistration drops a user whose cart could not be created. Stores that
// roll back the unit of work need nothing.
func (s *AccountService) undoRegistration(ctx context.Context, userID int64) {
	if s.tx.Atomic() {
		return
	}
	if err := s.users.DeleteUser(context.WithoutCancel(ctx), userID); err != nil {
		s.logger.Error("CRITICAL user left without cart", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (s *AccountService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return u, nil
}

// ProfileUpdate is a partial change of the caller's own profile. Nil fields
// are left as they are.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	Email       *string
	PhoneNumber *string
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID int64, p ProfileUpdate) (*domain.User, error) {
	upd := domain.UserUpdate{
		FirstName:   trimmed(p.FirstName),
		LastName:    trimmed(p.LastName),
		Email:       trimmed(p.Email),
		PhoneNumber: trimmed(p.PhoneNumber),
	}
	if upd.Email != nil {
		*upd.Email = strings.ToLower(*upd.Email)
	}

	switch {
	case upd.FirstName != nil && *upd.FirstName == "",
		upd.LastName != nil && *upd.LastName == "":
		return nil, domain.InvalidArgumentf("first and last name cannot be blank")
	case upd.Email != nil && !strings.Contains(*upd.Email, "@"):
		return nil, domain.InvalidArgumentf("invalid email %q", *upd.Email)
	}

	u, err := s.users.UpdateUser(ctx, userID, upd)
	if err != nil {
		return nil, classify(err)
	}
	s.logger.Info("user profile updated", zap.Int64("user_id", userID))
	return u, nil
}

// RequireAdmin loads the caller and fails with Forbidden unless it is an admin.
func (s *AccountService) RequireAdmin(ctx context.Context, callerID int64) (*domain.User, error) {
	u, err := s.users.GetUser(ctx, callerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("unknown caller %d: %w", callerID, domain.ErrForbidden)
	}
	if err != nil {
		return nil, classify(err)
	}
	if !u.IsAdmin() {
		return nil, fmt.Errorf("user %d is not an admin: %w", callerID, domain.ErrForbidden)
	}
	return u, nil
}

// ListCustomers returns every non-admin user.
func (s *AccountService) ListCustomers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.ListUsers(ctx, domain.RoleStandard)
	if err != nil {
		return nil, classify(err)
	}
	return users, nil
}

// DeleteUser removes a user and its cart. Purchase records stay in the ledger.
func (s *AccountService) DeleteUser(ctx context.Context, callerID, userID int64) error {
	if callerID == userID {
		return domain.InvalidArgumentf("admins cannot delete themselves")
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return classify(err)
	}
	s.logger.Info("user deleted", zap.Int64("user_id", userID), zap.Int64("by", callerID))
	return nil
}

// Purchases yields the user's purchase history oldest first.
func (s *AccountService) Purchases(ctx context.Context, userID int64) iter.Seq2[domain.PurchaseRecord, error] {
	return func(yield func(domain.PurchaseRecord, error) bool) {
		for p, err := range s.ledger.QueryByUser(ctx, userID) {
			if err != nil {
				yield(domain.PurchaseRecord{}, classify(err))
				return
			}
			if !yield(p, nil) {
				return
			}
		}
	}
}
