package repos

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"techshop/internal/domain"
)

type UserRepo struct{ DB DBTX }

func NewUserRepo(db DBTX) *UserRepo { return &UserRepo{DB: db} }

func (r *UserRepo) WithTx(tx *sqlx.Tx) *UserRepo { return &UserRepo{DB: tx} }

const userCols = `u.id,u.email,u.name,COALESCE(u.image,'') AS image,COALESCE(u.password_hash,'') AS password_hash,u.role,u.created_at`

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, `SELECT `+userCols+` FROM users u WHERE LOWER(u.email)=LOWER(?)`, email)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, `SELECT `+userCols+` FROM users u WHERE u.id=?`, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user; an empty hash stores NULL (OAuth-only account).
func (r *UserRepo) Create(ctx context.Context, email, name, image, hash string, role domain.Role) (*domain.User, error) {
	id := uuid.NewString()
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users(id,email,name,image,password_hash,role)
		VALUES(?,?,?,NULLIF(?,''),NULLIF(?,''),?)
	`, id, email, name, image, hash, role)
	if err != nil {
		return nil, err
	}
	return r.ByID(ctx, id)
}

// ByAccount resolves an OAuth identity to its linked user.
func (r *UserRepo) ByAccount(ctx context.Context, provider, providerUserID string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, `
		SELECT `+userCols+`
		FROM accounts a JOIN users u ON u.id=a.user_id
		WHERE a.provider=? AND a.provider_user_id=?`, provider, providerUserID)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) LinkAccount(ctx context.Context, provider, providerUserID, userID string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO accounts(provider,provider_user_id,user_id) VALUES(?,?,?)
		ON CONFLICT(provider,provider_user_id) DO UPDATE SET user_id=excluded.user_id`,
		provider, providerUserID, userID)
	return err
}

// UpdateProfile fills in name and image reported by an OAuth provider.
func (r *UserRepo) UpdateProfile(ctx context.Context, id, name, image string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET name=CASE WHEN ?<>'' THEN ? ELSE name END,
		    image=COALESCE(NULLIF(?,''),image),
		    updated_at=CURRENT_TIMESTAMP
		WHERE id=?`, name, name, image, id)
	return err
}

func (r *UserRepo) BindSession(ctx context.Context, sid, userID string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO sessions(id,user_id,last_seen)
                          VALUES(?,?,CURRENT_TIMESTAMP)
                          ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id,last_seen=CURRENT_TIMESTAMP`, sid, userID)
	return err
}

func (r *UserRepo) SessionUser(ctx context.Context, sid string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, `
      SELECT `+userCols+`
      FROM sessions s
      JOIN users u ON u.id=s.user_id
      WHERE s.id=?`, sid)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UnbindSession(ctx context.Context, sid string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE sessions SET user_id=NULL,last_seen=CURRENT_TIMESTAMP WHERE id=?`, sid)
	return err
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`)
	return n, err
}

// CountSince counts users created within the last days.
func (r *UserRepo) CountSince(ctx context.Context, days int) (int, error) {
	var n int
	err := r.DB.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM users
		WHERE datetime(created_at) >= datetime('now', ?)`, "-"+strconv.Itoa(days)+" days")
	return n, err
}
