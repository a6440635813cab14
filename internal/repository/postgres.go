package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/nvoronin/card-ledger/internal/models"
)

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore implements Store on top of PostgreSQL.
type PostgresStore struct {
	db   *sql.DB
	conn dbtx
	inTx bool
}

// NewPostgresStore initializes a Postgres-backed store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, conn: db}
}

func (s *PostgresStore) Cards() CardStore                 { return &pgCardStore{s.conn} }
func (s *PostgresStore) Transfers() TransferStore         { return &pgTransferStore{s.conn} }
func (s *PostgresStore) BlockRequests() BlockRequestStore { return &pgBlockRequestStore{s.conn} }
func (s *PostgresStore) History() HistoryStore            { return &pgHistoryStore{s.conn} }
func (s *PostgresStore) Users() UserStore                 { return &pgUserStore{s.conn} }

// InTx runs fn inside a database transaction. Nested calls join the
// enclosing transaction.
func (s *PostgresStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	txStore := &PostgresStore{db: s.db, conn: tx, inTx: true}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation.
func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}

// --- cards ---

type pgCardStore struct {
	conn dbtx
}

const cardColumns = `id, encrypted_number, masked_number, owner, expiry_date, status, balance, user_id, created_at, updated_at`

func scanCard(row interface{ Scan(...any) error }) (*models.Card, error) {
	card := &models.Card{}
	err := row.Scan(&card.ID, &card.EncryptedNumber, &card.MaskedNumber, &card.Owner,
		&card.ExpiryDate, &card.Status, &card.Balance, &card.UserID, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return card, nil
}

func (r *pgCardStore) Create(ctx context.Context, card *models.Card) error {
	query := `
		INSERT INTO bank.cards (encrypted_number, masked_number, owner, expiry_date, status, balance, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.conn.QueryRowContext(ctx, query, card.EncryptedNumber, card.MaskedNumber, card.Owner,
		card.ExpiryDate, card.Status, card.Balance, card.UserID).
		Scan(&card.ID, &card.CreatedAt, &card.UpdatedAt)
	if isUniqueViolation(err) {
		return models.ErrDuplicateCard
	}
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

func (r *pgCardStore) FindByID(ctx context.Context, id int64) (*models.Card, error) {
	return r.findByID(ctx, id, "")
}

func (r *pgCardStore) FindByIDForUpdate(ctx context.Context, id int64) (*models.Card, error) {
	return r.findByID(ctx, id, " FOR UPDATE")
}

func (r *pgCardStore) findByID(ctx context.Context, id int64, suffix string) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM bank.cards WHERE id = $1` + suffix
	card, err := scanCard(r.conn.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find card: %w", err)
	}
	return card, nil
}

func (r *pgCardStore) FindByUser(ctx context.Context, userID int64, page models.PageRequest) (*models.Page[models.Card], error) {
	return r.findPage(ctx, page, `WHERE user_id = $1`, userID)
}

func (r *pgCardStore) FindAll(ctx context.Context, page models.PageRequest) (*models.Page[models.Card], error) {
	return r.findPage(ctx, page, ``)
}

func (r *pgCardStore) findPage(ctx context.Context, page models.PageRequest, where string, args ...any) (*models.Page[models.Card], error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM bank.cards ` + where
	if err := r.conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count cards: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM bank.cards %s ORDER BY id LIMIT $%d OFFSET $%d`,
		cardColumns, where, len(args)+1, len(args)+2)
	rows, err := r.conn.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, *card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	return models.NewPage(cards, page, total), nil
}

func (r *pgCardStore) FindExpiredActive(ctx context.Context, asOf time.Time) ([]models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM bank.cards WHERE status = $1 AND expiry_date < $2 ORDER BY id`
	rows, err := r.conn.QueryContext(ctx, query, models.CardStatusActive, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired cards: %w", err)
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, *card)
	}
	return cards, rows.Err()
}

func (r *pgCardStore) Save(ctx context.Context, card *models.Card) error {
	query := `
		UPDATE bank.cards
		SET masked_number = $2, owner = $3, expiry_date = $4, status = $5, balance = $6, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`
	err := r.conn.QueryRowContext(ctx, query, card.ID, card.MaskedNumber, card.Owner,
		card.ExpiryDate, card.Status, card.Balance).Scan(&card.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.ErrCardNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to save card: %w", err)
	}
	return nil
}

func (r *pgCardStore) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.conn.ExecContext(ctx, `DELETE FROM bank.cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrCardNotFound
	}
	return nil
}

// --- transfers ---

type pgTransferStore struct {
	conn dbtx
}

func (r *pgTransferStore) Create(ctx context.Context, transfer *models.Transfer) error {
	query := `
		INSERT INTO bank.transfers (from_card_id, to_card_id, amount, timestamp)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := r.conn.QueryRowContext(ctx, query, transfer.FromCardID, transfer.ToCardID,
		transfer.Amount, transfer.Timestamp).Scan(&transfer.ID)
	if err != nil {
		return fmt.Errorf("failed to create transfer: %w", err)
	}
	return nil
}

func (r *pgTransferStore) FindByFromCard(ctx context.Context, cardID int64, page models.PageRequest) (*models.Page[models.Transfer], error) {
	return r.findPage(ctx, cardID, "from_card_id", page)
}

func (r *pgTransferStore) FindByToCard(ctx context.Context, cardID int64, page models.PageRequest) (*models.Page[models.Transfer], error) {
	return r.findPage(ctx, cardID, "to_card_id", page)
}

func (r *pgTransferStore) findPage(ctx context.Context, cardID int64, column string, page models.PageRequest) (*models.Page[models.Transfer], error) {
	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM bank.transfers WHERE %s = $1`, column)
	if err := r.conn.QueryRowContext(ctx, countQuery, cardID).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count transfers: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, from_card_id, to_card_id, amount, timestamp
		FROM bank.transfers WHERE %s = $1
		ORDER BY timestamp DESC, id DESC LIMIT $2 OFFSET $3`, column)
	rows, err := r.conn.QueryContext(ctx, query, cardID, page.Size, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []models.Transfer
	for rows.Next() {
		var t models.Transfer
		if err := rows.Scan(&t.ID, &t.FromCardID, &t.ToCardID, &t.Amount, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	return models.NewPage(transfers, page, total), nil
}

// --- block requests ---

type pgBlockRequestStore struct {
	conn dbtx
}

const blockRequestColumns = `id, card_id, requester_id, reason, status, admin_id, admin_comment, created_at, processed_at`

func scanBlockRequest(row interface{ Scan(...any) error }) (*models.CardBlockRequest, error) {
	req := &models.CardBlockRequest{}
	var adminID sql.NullInt64
	var adminComment sql.NullString
	var processedAt sql.NullTime
	err := row.Scan(&req.ID, &req.CardID, &req.RequesterID, &req.Reason, &req.Status,
		&adminID, &adminComment, &req.CreatedAt, &processedAt)
	if err != nil {
		return nil, err
	}
	if adminID.Valid {
		req.AdminID = &adminID.Int64
	}
	if adminComment.Valid {
		req.AdminComment = adminComment.String
	}
	if processedAt.Valid {
		req.ProcessedAt = &processedAt.Time
	}
	return req, nil
}

func (r *pgBlockRequestStore) Create(ctx context.Context, request *models.CardBlockRequest) error {
	query := `
		INSERT INTO bank.card_block_requests (card_id, requester_id, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := r.conn.QueryRowContext(ctx, query, request.CardID, request.RequesterID,
		request.Reason, request.Status, request.CreatedAt).Scan(&request.ID)
	if err != nil {
		return fmt.Errorf("failed to create block request: %w", err)
	}
	return nil
}

func (r *pgBlockRequestStore) FindByID(ctx context.Context, id int64) (*models.CardBlockRequest, error) {
	return r.findByID(ctx, id, "")
}

func (r *pgBlockRequestStore) FindByIDForUpdate(ctx context.Context, id int64) (*models.CardBlockRequest, error) {
	return r.findByID(ctx, id, " FOR UPDATE")
}

func (r *pgBlockRequestStore) findByID(ctx context.Context, id int64, suffix string) (*models.CardBlockRequest, error) {
	query := `SELECT ` + blockRequestColumns + ` FROM bank.card_block_requests WHERE id = $1` + suffix
	req, err := scanBlockRequest(r.conn.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find block request: %w", err)
	}
	return req, nil
}

func (r *pgBlockRequestStore) FindByRequester(ctx context.Context, userID int64, page models.PageRequest) (*models.Page[models.CardBlockRequest], error) {
	return r.findPage(ctx, page, `WHERE requester_id = $1`, userID)
}

func (r *pgBlockRequestStore) FindByStatus(ctx context.Context, status models.BlockRequestStatus, page models.PageRequest) (*models.Page[models.CardBlockRequest], error) {
	return r.findPage(ctx, page, `WHERE status = $1`, status)
}

func (r *pgBlockRequestStore) FindAll(ctx context.Context, page models.PageRequest) (*models.Page[models.CardBlockRequest], error) {
	return r.findPage(ctx, page, ``)
}

func (r *pgBlockRequestStore) findPage(ctx context.Context, page models.PageRequest, where string, args ...any) (*models.Page[models.CardBlockRequest], error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM bank.card_block_requests ` + where
	if err := r.conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count block requests: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM bank.card_block_requests %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		blockRequestColumns, where, len(args)+1, len(args)+2)
	rows, err := r.conn.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("failed to list block requests: %w", err)
	}
	defer rows.Close()

	var requests []models.CardBlockRequest
	for rows.Next() {
		req, err := scanBlockRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan block request: %w", err)
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list block requests: %w", err)
	}
	return models.NewPage(requests, page, total), nil
}

func (r *pgBlockRequestStore) Save(ctx context.Context, request *models.CardBlockRequest) error {
	query := `
		UPDATE bank.card_block_requests
		SET status = $2, admin_id = $3, admin_comment = $4, processed_at = $5
		WHERE id = $1`
	res, err := r.conn.ExecContext(ctx, query, request.ID, request.Status,
		request.AdminID, nullString(request.AdminComment), request.ProcessedAt)
	if err != nil {
		return fmt.Errorf("failed to save block request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrRequestNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// --- operation history ---

type pgHistoryStore struct {
	conn dbtx
}

const historyColumns = `id, card_id, operation_type, performed_by_id, previous_status, new_status, comment, created_at`

func scanHistory(row interface{ Scan(...any) error }) (*models.CardOperationHistory, error) {
	rec := &models.CardOperationHistory{}
	var performedBy sql.NullInt64
	var prevStatus, newStatus, comment sql.NullString
	err := row.Scan(&rec.ID, &rec.CardID, &rec.OperationType, &performedBy,
		&prevStatus, &newStatus, &comment, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if performedBy.Valid {
		rec.PerformedBy = &performedBy.Int64
	}
	if prevStatus.Valid {
		status := models.CardStatus(prevStatus.String)
		rec.PreviousStatus = &status
	}
	if newStatus.Valid {
		status := models.CardStatus(newStatus.String)
		rec.NewStatus = &status
	}
	if comment.Valid {
		rec.Comment = comment.String
	}
	return rec, nil
}

func (r *pgHistoryStore) Create(ctx context.Context, record *models.CardOperationHistory) error {
	query := `
		INSERT INTO bank.card_operations_history (card_id, operation_type, performed_by_id, previous_status, new_status, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	var prev, next any
	if record.PreviousStatus != nil {
		prev = string(*record.PreviousStatus)
	}
	if record.NewStatus != nil {
		next = string(*record.NewStatus)
	}
	err := r.conn.QueryRowContext(ctx, query, record.CardID, record.OperationType,
		record.PerformedBy, prev, next, nullString(record.Comment), record.CreatedAt).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("failed to create history record: %w", err)
	}
	return nil
}

func (r *pgHistoryStore) FindByCard(ctx context.Context, cardID int64, page models.PageRequest) (*models.Page[models.CardOperationHistory], error) {
	return r.findPage(ctx, page, `WHERE card_id = $1`, cardID)
}

func (r *pgHistoryStore) FindByCardAndType(ctx context.Context, cardID int64, opType models.OperationType, page models.PageRequest) (*models.Page[models.CardOperationHistory], error) {
	return r.findPage(ctx, page, `WHERE card_id = $1 AND operation_type = $2`, cardID, opType)
}

func (r *pgHistoryStore) CountByCard(ctx context.Context, cardID int64) (int64, error) {
	var total int64
	err := r.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM bank.card_operations_history WHERE card_id = $1`, cardID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count history records: %w", err)
	}
	return total, nil
}

func (r *pgHistoryStore) findPage(ctx context.Context, page models.PageRequest, where string, args ...any) (*models.Page[models.CardOperationHistory], error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM bank.card_operations_history ` + where
	if err := r.conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count history records: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM bank.card_operations_history %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		historyColumns, where, len(args)+1, len(args)+2)
	rows, err := r.conn.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history records: %w", err)
	}
	defer rows.Close()

	var records []models.CardOperationHistory
	for rows.Next() {
		rec, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list history records: %w", err)
	}
	return models.NewPage(records, page, total), nil
}

// --- users ---

type pgUserStore struct {
	conn dbtx
}

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	var email sql.NullString
	var roles pq.StringArray
	err := row.Scan(&user.ID, &user.Username, &email, &user.PasswordHash, &roles, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	if email.Valid {
		user.Email = email.String
	}
	for _, r := range roles {
		user.Roles = append(user.Roles, models.Role(r))
	}
	return user, nil
}

func (r *pgUserStore) Create(ctx context.Context, user *models.User) error {
	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, string(role))
	}
	query := `
		INSERT INTO bank.users (username, email, password_hash, roles, created_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.conn.QueryRowContext(ctx, query, user.Username, nullString(user.Email),
		user.PasswordHash, pq.Array(roles)).Scan(&user.ID, &user.CreatedAt)
	if isUniqueViolation(err) {
		return models.ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *pgUserStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, username, email, password_hash, roles, created_at FROM bank.users WHERE id = $1`
	user, err := scanUser(r.conn.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func (r *pgUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT id, username, email, password_hash, roles, created_at FROM bank.users WHERE username = $1`
	user, err := scanUser(r.conn.QueryRowContext(ctx, query, username))
	if err == sql.ErrNoRows {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func (r *pgUserStore) FindAll(ctx context.Context, page models.PageRequest) (*models.Page[models.User], error) {
	var total int64
	if err := r.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM bank.users`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	query := `SELECT id, username, email, password_hash, roles, created_at FROM bank.users ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := r.conn.QueryContext(ctx, query, page.Size, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return models.NewPage(users, page, total), nil
}
