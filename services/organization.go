package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/fintrackapp/finance-api/models"
	"github.com/fintrackapp/finance-api/utils"

	"github.com/google/uuid"
)

type OrganizationService struct {
	db *sql.DB
}

func NewOrganizationService(db *sql.DB) *OrganizationService {
	return &OrganizationService{db: db}
}

// Create makes the caller the admin of a new organization. The promotion and
// the organization insert commit together.
func (s *OrganizationService) Create(ctx context.Context, name, ownerID string) (*models.Organization, error) {
	var existing sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT organization_id FROM users WHERE id = $1", ownerID).Scan(&existing)
	if err == sql.ErrNoRows {
		return nil, notFoundError("user not found")
	}
	if err != nil {
		return nil, err
	}
	if existing.Valid {
		return nil, validationError("user already belongs to an organization")
	}

	org := &models.Organization{
		ID:        uuid.New().String(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: time.Now(),
	}

	err = utils.WithTransaction(s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO organizations (id, name, owner_id, created_at)
			VALUES ($1, $2, $3, $4)
		`, org.ID, org.Name, org.OwnerID, org.CreatedAt); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE users SET organization_id = $1, role = $2, updated_at = NOW() WHERE id = $3
		`, org.ID, models.RoleAdmin, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return org, nil
}

// AddMember creates a fresh user inside the admin's organization, with their
// account provisioned in the same transaction like any registration.
func (s *OrganizationService) AddMember(ctx context.Context, adminID string, req models.AddMemberRequest) (*models.User, error) {
	orgID, err := s.adminOrg(ctx, adminID)
	if err != nil {
		return nil, err
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)", req.Email).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, validationError("email already registered")
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:             uuid.New().String(),
		Email:          req.Email,
		Name:           req.Name,
		Role:           models.RoleUser,
		OrganizationID: orgID,
		CreatedAt:      time.Now(),
	}

	err = utils.WithTransaction(s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, email, password_hash, name, role, organization_id)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, user.ID, user.Email, passwordHash, user.Name, user.Role, orgID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (id, user_id, balance)
			VALUES ($1, $2, 0)
		`, uuid.New().String(), user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (s *OrganizationService) Members(ctx context.Context, adminID string) ([]models.OrganizationMember, error) {
	orgID, err := s.adminOrg(ctx, adminID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, name, role, created_at
		FROM users
		WHERE organization_id = $1
		ORDER BY created_at
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []models.OrganizationMember{}
	for rows.Next() {
		var m models.OrganizationMember
		if err := rows.Scan(&m.ID, &m.Email, &m.Name, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

// RemoveMember detaches a member from the organization. The member's user,
// account and ledger history stay intact; only the membership link goes.
func (s *OrganizationService) RemoveMember(ctx context.Context, adminID, memberID string) error {
	orgID, err := s.adminOrg(ctx, adminID)
	if err != nil {
		return err
	}
	if memberID == adminID {
		return validationError("admin cannot remove themselves")
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET organization_id = NULL, updated_at = NOW()
		WHERE id = $1 AND organization_id = $2
	`, memberID, orgID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFoundError("member not found in organization")
	}
	return nil
}

func (s *OrganizationService) adminOrg(ctx context.Context, adminID string) (string, error) {
	var orgID sql.NullString
	var role string
	err := s.db.QueryRowContext(ctx, "SELECT organization_id, role FROM users WHERE id = $1", adminID).Scan(&orgID, &role)
	if err == sql.ErrNoRows {
		return "", notFoundError("user not found")
	}
	if err != nil {
		return "", err
	}
	if !orgID.Valid || role != models.RoleAdmin {
		return "", validationError("user is not an organization admin")
	}
	return orgID.String, nil
}
