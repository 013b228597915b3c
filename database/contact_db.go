package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/camden-git/identitybackend/models"
	"github.com/camden-git/identitybackend/repository"
)

var contactColumns = []string{"id", "email", "phone_number", "linked_id", "link_precedence", "created_at", "updated_at"}

// ContactStore implements the contact repository contract with hand-built SQL
// so it can run against PostgreSQL without GORM.
type ContactStore struct {
	db   *sql.DB
	psql sq.StatementBuilderType
}

// NewContactStore wraps an open database handle; driver selects the placeholder format
func NewContactStore(db *sql.DB, driver string) *ContactStore {
	return &ContactStore{db: db, psql: statementBuilder(driver)}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (models.Contact, error) {
	var (
		c          models.Contact
		email      sql.NullString
		phone      sql.NullString
		linkedID   sql.NullInt64
		precedence string
	)
	if err := row.Scan(&c.ID, &email, &phone, &linkedID, &precedence, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return models.Contact{}, err
	}
	if email.Valid {
		c.Email = &email.String
	}
	if phone.Valid {
		c.PhoneNumber = &phone.String
	}
	if linkedID.Valid {
		parent := uint(linkedID.Int64)
		c.LinkedID = &parent
	}
	c.LinkPrecedence = models.LinkPrecedence(precedence)
	return c, nil
}

// FindMatching retrieves contacts sharing the given email or phone number, ascending by id
func (s *ContactStore) FindMatching(ctx context.Context, email, phone *string) ([]models.Contact, error) {
	or := sq.Or{}
	if email != nil {
		or = append(or, sq.Eq{"email": *email})
	}
	if phone != nil {
		or = append(or, sq.Eq{"phone_number": *phone})
	}
	if len(or) == 0 {
		return []models.Contact{}, nil
	}

	sqlStr, args, err := s.psql.Select(contactColumns...).
		From("contacts").
		Where(or).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for FindMatching: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FindMatching query: %w", err)
	}
	defer rows.Close()

	contacts := []models.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan matching contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating matching contacts: %w", err)
	}
	return contacts, nil
}

// FindByID retrieves a single contact
func (s *ContactStore) FindByID(ctx context.Context, id uint) (*models.Contact, error) {
	return s.queryOne(ctx, sq.Eq{"id": id}, fmt.Sprintf("contact %d", id))
}

// FindChildOf retrieves the contact whose parent pointer is id
func (s *ContactStore) FindChildOf(ctx context.Context, id uint) (*models.Contact, error) {
	return s.queryOne(ctx, sq.Eq{"linked_id": id}, fmt.Sprintf("child of contact %d", id))
}

func (s *ContactStore) queryOne(ctx context.Context, where sq.Eq, what string) (*models.Contact, error) {
	sqlStr, args, err := s.psql.Select(contactColumns...).
		From("contacts").
		Where(where).
		OrderBy("id ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for %s: %w", what, err)
	}

	c, err := scanContact(s.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrContactNotFound
		}
		return nil, fmt.Errorf("failed to query or scan %s: %w", what, err)
	}
	return &c, nil
}

// Create inserts a new contact and reads it back
func (s *ContactStore) Create(ctx context.Context, email, phone *string, parentID *uint) (*models.Contact, error) {
	now := time.Now().Unix()
	precedence := models.LinkPrecedencePrimary
	var linked any
	if parentID != nil {
		precedence = models.LinkPrecedenceSecondary
		linked = int64(*parentID)
	}

	sqlStr, args, err := s.psql.Insert("contacts").
		Columns("email", "phone_number", "linked_id", "link_precedence", "created_at", "updated_at").
		Values(nullableString(email), nullableString(phone), linked, string(precedence), now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for Create: %w", err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to execute Create query: %w", err)
	}
	return s.FindByID(ctx, uint(id))
}

// Relink points a contact at a new parent and marks it secondary
func (s *ContactStore) Relink(ctx context.Context, id, newParentID uint) (*models.Contact, error) {
	sqlStr, args, err := s.psql.Update("contacts").
		Set("linked_id", int64(newParentID)).
		Set("link_precedence", string(models.LinkPrecedenceSecondary)).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for Relink: %w", err)
	}

	result, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to relink contact %d to %d: %w", id, newParentID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected for relink of %d: %w", id, err)
	}
	if affected == 0 {
		return nil, repository.ErrContactNotFound
	}
	return s.FindByID(ctx, id)
}

// Ping checks database connectivity
func (s *ContactStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrStoreUnavailable, err)
	}
	return nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
