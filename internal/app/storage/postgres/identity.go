package postgres

import (
	"context"
	"time"

	"github.com/dabbahouse/foodorder/internal/app/domain/identity"
)

type userRow struct {
	ID              int64     `db:"id"`
	Email           string    `db:"email"`
	PasswordHash    string    `db:"password_hash"`
	Name            string    `db:"name"`
	Phone           string    `db:"phone"`
	Country         string    `db:"country"`
	Province        string    `db:"province"`
	Address         string    `db:"address"`
	ProfileComplete bool      `db:"profile_complete"`
	Active          bool      `db:"is_active"`
	CreatedAt       time.Time `db:"created_at"`
}

func (r userRow) toDomain() identity.User {
	return identity.User{
		ID:              r.ID,
		Email:           r.Email,
		PasswordHash:    r.PasswordHash,
		Name:            r.Name,
		Phone:           r.Phone,
		Country:         r.Country,
		Province:        r.Province,
		Address:         r.Address,
		ProfileComplete: r.ProfileComplete,
		Active:          r.Active,
		CreatedAt:       r.CreatedAt,
	}
}

const userColumns = `id, email, password_hash, name, phone, country, province, address, profile_complete, is_active, created_at`

// --- UserStore ---------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, user identity.User) (identity.User, error) {
	user.Email = identity.NormalizeEmail(user.Email)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO users (email, password_hash, name, phone, country, province, address, profile_complete, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, user.Email, user.PasswordHash, user.Name, user.Phone, user.Country, user.Province, user.Address,
		user.ProfileComplete, user.Active, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		return identity.User{}, mapError(err, "user", user.Email)
	}
	return user, nil
}

func (s *Store) UpdateUser(ctx context.Context, user identity.User) (identity.User, error) {
	user.Email = identity.NormalizeEmail(user.Email)
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email = $2, password_hash = $3, name = $4, phone = $5, country = $6,
		    province = $7, address = $8, profile_complete = $9, is_active = $10
		WHERE id = $1
	`, user.ID, user.Email, user.PasswordHash, user.Name, user.Phone, user.Country,
		user.Province, user.Address, user.ProfileComplete, user.Active)
	if err != nil {
		return identity.User{}, mapError(err, "user", user.ID)
	}
	if err := notFoundOnNoRows(result, "user", user.ID); err != nil {
		return identity.User{}, err
	}
	return s.GetUser(ctx, user.ID)
}

func (s *Store) GetUser(ctx context.Context, id int64) (identity.User, error) {
	var row userRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return identity.User{}, mapError(err, "user", id)
	}
	return row.toDomain(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (identity.User, error) {
	email = identity.NormalizeEmail(email)
	var row userRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE email = $1`, email); err != nil {
		return identity.User{}, mapError(err, "user", email)
	}
	return row.toDomain(), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]identity.User, error) {
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, mapError(err, "user", "list")
	}
	result := make([]identity.User, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, mapError(err, "user", "count")
	}
	return n, nil
}

// --- AdminStore --------------------------------------------------------------

type adminRow struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	Active       bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r adminRow) toDomain() identity.Admin {
	return identity.Admin{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Email:        r.Email,
		Name:         r.Name,
		Active:       r.Active,
		CreatedAt:    r.CreatedAt,
	}
}

const adminColumns = `id, username, password_hash, email, name, is_active, created_at`

func (s *Store) CreateAdmin(ctx context.Context, admin identity.Admin) (identity.Admin, error) {
	admin.Email = identity.NormalizeEmail(admin.Email)
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = time.Now().UTC()
	}

	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO admins (username, password_hash, email, name, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, admin.Username, admin.PasswordHash, admin.Email, admin.Name, admin.Active, admin.CreatedAt).Scan(&admin.ID)
	if err != nil {
		return identity.Admin{}, mapError(err, "admin", admin.Username)
	}
	return admin, nil
}

func (s *Store) UpdateAdmin(ctx context.Context, admin identity.Admin) (identity.Admin, error) {
	admin.Email = identity.NormalizeEmail(admin.Email)
	result, err := s.db.ExecContext(ctx, `
		UPDATE admins
		SET username = $2, password_hash = $3, email = $4, name = $5, is_active = $6
		WHERE id = $1
	`, admin.ID, admin.Username, admin.PasswordHash, admin.Email, admin.Name, admin.Active)
	if err != nil {
		return identity.Admin{}, mapError(err, "admin", admin.ID)
	}
	if err := notFoundOnNoRows(result, "admin", admin.ID); err != nil {
		return identity.Admin{}, err
	}
	return s.GetAdmin(ctx, admin.ID)
}

func (s *Store) GetAdmin(ctx context.Context, id int64) (identity.Admin, error) {
	var row adminRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id); err != nil {
		return identity.Admin{}, mapError(err, "admin", id)
	}
	return row.toDomain(), nil
}

func (s *Store) GetAdminByUsername(ctx context.Context, username string) (identity.Admin, error) {
	var row adminRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+adminColumns+` FROM admins WHERE lower(username) = lower($1)`, username); err != nil {
		return identity.Admin{}, mapError(err, "admin", username)
	}
	return row.toDomain(), nil
}

func (s *Store) ListAdmins(ctx context.Context) ([]identity.Admin, error) {
	var rows []adminRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+adminColumns+` FROM admins ORDER BY id`); err != nil {
		return nil, mapError(err, "admin", "list")
	}
	result := make([]identity.Admin, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}
