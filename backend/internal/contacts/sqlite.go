package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"kinship/backend/internal/constants"
	apperrors "kinship/backend/pkg/errors"
	"kinship/backend/pkg/logger"
)

type contactRow struct {
	ID         int64          `db:"id"`
	Name       string         `db:"name"`
	NameKey    string         `db:"name_key"`
	Summary    sql.NullString `db:"summary"`
	Fact1      sql.NullString `db:"fact_1"`
	Fact1Type  sql.NullString `db:"fact_1_type"`
	Fact2      sql.NullString `db:"fact_2"`
	Fact2Type  sql.NullString `db:"fact_2_type"`
	Fact3      sql.NullString `db:"fact_3"`
	Fact3Type  sql.NullString `db:"fact_3_type"`
	Fact4      sql.NullString `db:"fact_4"`
	Fact4Type  sql.NullString `db:"fact_4_type"`
	Fact5      sql.NullString `db:"fact_5"`
	Fact5Type  sql.NullString `db:"fact_5_type"`
	Fact6      sql.NullString `db:"fact_6"`
	Fact6Type  sql.NullString `db:"fact_6_type"`
	Fact7      sql.NullString `db:"fact_7"`
	Fact7Type  sql.NullString `db:"fact_7_type"`
	Fact8      sql.NullString `db:"fact_8"`
	Fact8Type  sql.NullString `db:"fact_8_type"`
	Fact9      sql.NullString `db:"fact_9"`
	Fact9Type  sql.NullString `db:"fact_9_type"`
	Fact10     sql.NullString `db:"fact_10"`
	Fact10Type sql.NullString `db:"fact_10_type"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (r *contactRow) toContact() *Contact {
	texts := [constants.FactSlotCount]sql.NullString{
		r.Fact1, r.Fact2, r.Fact3, r.Fact4, r.Fact5,
		r.Fact6, r.Fact7, r.Fact8, r.Fact9, r.Fact10,
	}
	types := [constants.FactSlotCount]sql.NullString{
		r.Fact1Type, r.Fact2Type, r.Fact3Type, r.Fact4Type, r.Fact5Type,
		r.Fact6Type, r.Fact7Type, r.Fact8Type, r.Fact9Type, r.Fact10Type,
	}

	c := &Contact{
		ID:        r.ID,
		Name:      r.Name,
		Summary:   r.Summary.String,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	for i := range texts {
		if texts[i].Valid && !isBlank(texts[i].String) {
			c.Facts[i] = Slot{Text: texts[i].String, Type: types[i].String}
		}
	}
	return c
}

// factColumns returns the text and type column names of a validated slot
func factColumns(slot int) (string, string) {
	return fmt.Sprintf("fact_%d", slot), fmt.Sprintf("fact_%d_type", slot)
}

// SQLStore keeps contacts in the SQLite contacts table, one column pair per
// fact slot. Multi-statement operations run in IMMEDIATE transactions; the
// rest are single statements.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
	log *zap.Logger
}

// NewSQLStore creates a contact store over an already-migrated database
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
		log: logger.Named("contacts.sqlite"),
	}
}

func (s *SQLStore) AddOrGet(ctx context.Context, name string, summary *string) (*Contact, bool, error) {
	key, err := validateName(name)
	if err != nil {
		return nil, false, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, s.fail(ctx, "add_or_get", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	created := false
	err = tx.GetContext(ctx, &id, `SELECT id FROM contacts WHERE name_key = ? ORDER BY id LIMIT 1`, key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		now := s.now()
		var sum sql.NullString
		if summary != nil {
			sum = sql.NullString{String: *summary, Valid: true}
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO contacts (name, name_key, summary, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			name, key, sum, now, now)
		if err != nil {
			return nil, false, s.fail(ctx, "add_or_get", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return nil, false, s.fail(ctx, "add_or_get", err)
		}
		created = true
	case err != nil:
		return nil, false, s.fail(ctx, "add_or_get", err)
	case summary != nil:
		if _, err := tx.ExecContext(ctx,
			`UPDATE contacts SET summary = ?, updated_at = ? WHERE id = ?`,
			*summary, s.now(), id); err != nil {
			return nil, false, s.fail(ctx, "add_or_get", err)
		}
	}

	c, err := getContact(ctx, tx, id)
	if err != nil {
		return nil, false, s.fail(ctx, "add_or_get", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, s.fail(ctx, "add_or_get", err)
	}

	if created {
		s.log.Info("Contact created", zap.Int64("contact_id", c.ID), zap.String("name", c.Name))
	}
	return c, created, nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (*Contact, error) {
	c, err := getContact(ctx, s.db, id)
	if err != nil {
		return nil, s.fail(ctx, "get_contact", err)
	}
	return c, nil
}

func (s *SQLStore) FindByName(ctx context.Context, query string) ([]Contact, error) {
	key, err := validateName(query)
	if err != nil {
		return nil, err
	}
	var rows []contactRow
	err = s.db.SelectContext(ctx, &rows,
		`SELECT * FROM contacts WHERE name_key LIKE ? ESCAPE '\' ORDER BY id`,
		"%"+escapeLike(key)+"%")
	if err != nil {
		return nil, s.fail(ctx, "find_by_name", err)
	}
	return toContacts(rows), nil
}

func (s *SQLStore) List(ctx context.Context) ([]Contact, error) {
	var rows []contactRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM contacts ORDER BY id`); err != nil {
		return nil, s.fail(ctx, "list_contacts", err)
	}
	return toContacts(rows), nil
}

func (s *SQLStore) UpdateSummary(ctx context.Context, id int64, summary string) error {
	return s.exec(ctx, "update_summary", id,
		`UPDATE contacts SET summary = ?, updated_at = ? WHERE id = ?`,
		summary, s.now(), id)
}

func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	if err := s.exec(ctx, "delete_contact", id, `DELETE FROM contacts WHERE id = ?`, id); err != nil {
		return err
	}
	s.log.Info("Contact deleted", zap.Int64("contact_id", id))
	return nil
}

func (s *SQLStore) AddFact(ctx context.Context, id int64, text, factType string) (int, error) {
	if err := validateFactText(text); err != nil {
		return 0, err
	}
	ft := normalizeFactType(factType)
	if ft == "" {
		ft = constants.DefaultFactType
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, s.fail(ctx, "add_fact", err)
	}
	defer func() { _ = tx.Rollback() }()

	c, err := getContact(ctx, tx, id)
	if err != nil {
		return 0, s.fail(ctx, "add_fact", err)
	}
	slot, ok := c.Facts.FirstEmpty()
	if !ok {
		return 0, apperrors.NewCapacityExceeded(id, constants.FactSlotCount)
	}

	textCol, typeCol := factColumns(slot)
	query := fmt.Sprintf(`UPDATE contacts SET %s = ?, %s = ?, updated_at = ? WHERE id = ?`, textCol, typeCol)
	if _, err := tx.ExecContext(ctx, query, text, ft, s.now(), id); err != nil {
		return 0, s.fail(ctx, "add_fact", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, s.fail(ctx, "add_fact", err)
	}

	s.log.Debug("Fact added", zap.Int64("contact_id", id), zap.Int("slot", slot))
	return slot, nil
}

func (s *SQLStore) UpdateFact(ctx context.Context, id int64, slot int, text, factType string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	if err := validateFactText(text); err != nil {
		return err
	}
	textCol, typeCol := factColumns(slot)
	// an empty type keeps the slot's current one
	query := fmt.Sprintf(
		`UPDATE contacts SET %[1]s = ?, %[2]s = COALESCE(NULLIF(?, ''), NULLIF(%[2]s, ''), ?), updated_at = ? WHERE id = ?`,
		textCol, typeCol)
	return s.exec(ctx, "update_fact", id, query,
		text, normalizeFactType(factType), constants.DefaultFactType, s.now(), id)
}

func (s *SQLStore) DeleteFact(ctx context.Context, id int64, slot int) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	textCol, typeCol := factColumns(slot)
	query := fmt.Sprintf(`UPDATE contacts SET %s = NULL, %s = NULL, updated_at = ? WHERE id = ?`, textCol, typeCol)
	return s.exec(ctx, "delete_fact", id, query, s.now(), id)
}

func (s *SQLStore) DeleteAllFacts(ctx context.Context, id int64) error {
	sets := make([]string, 0, 2*constants.FactSlotCount)
	for slot := 1; slot <= constants.FactSlotCount; slot++ {
		textCol, typeCol := factColumns(slot)
		sets = append(sets, textCol+" = NULL", typeCol+" = NULL")
	}
	query := `UPDATE contacts SET ` + strings.Join(sets, ", ") + `, updated_at = ? WHERE id = ?`
	return s.exec(ctx, "delete_all_facts", id, query, s.now(), id)
}

func (s *SQLStore) UpdateFactType(ctx context.Context, id int64, slot int, factType string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	ft := normalizeFactType(factType)
	if ft == "" {
		return apperrors.NewValidation("type", "must not be empty")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return s.fail(ctx, "update_fact_type", err)
	}
	defer func() { _ = tx.Rollback() }()

	c, err := getContact(ctx, tx, id)
	if err != nil {
		return s.fail(ctx, "update_fact_type", err)
	}
	if c.Facts.Get(slot).Empty() {
		return apperrors.NewValidation("slot", "slot is empty")
	}

	_, typeCol := factColumns(slot)
	query := fmt.Sprintf(`UPDATE contacts SET %s = ?, updated_at = ? WHERE id = ?`, typeCol)
	if _, err := tx.ExecContext(ctx, query, ft, s.now(), id); err != nil {
		return s.fail(ctx, "update_fact_type", err)
	}
	if err := tx.Commit(); err != nil {
		return s.fail(ctx, "update_fact_type", err)
	}
	return nil
}

// exec runs a single-row statement and maps zero affected rows to NotFound
func (s *SQLStore) exec(ctx context.Context, op string, id int64, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return s.fail(ctx, op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.fail(ctx, op, err)
	}
	if n == 0 {
		return apperrors.NewContactNotFound(id)
	}
	return nil
}

// fail passes typed errors through and classifies everything else as a
// context or storage failure
func (s *SQLStore) fail(ctx context.Context, op string, err error) error {
	if apperrors.TypeOf(err) != "" {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return apperrors.NewContextCancelled(op, ctxErr)
	}
	s.log.Error("Contact store operation failed", zap.String("operation", op), zap.Error(err))
	return apperrors.NewStorage(op, err)
}

func getContact(ctx context.Context, q sqlx.QueryerContext, id int64) (*Contact, error) {
	var row contactRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT * FROM contacts WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewContactNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return row.toContact(), nil
}

func toContacts(rows []contactRow) []Contact {
	out := make([]Contact, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toContact())
	}
	return out
}
