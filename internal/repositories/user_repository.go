package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/bloghut/backend/internal/models"
	"go.uber.org/zap"
)

// userRepository implements UserRepository
type userRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *userRepository {
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

const userColumns = `id, username, email, password_hash, role, bio, profile_image, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	var bio sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&bio,
		&user.ProfileImage,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Bio = bio.String
	return user, nil
}

// Create inserts a new user into the database
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, role, bio, profile_image)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, user.Username, user.Email, user.PasswordHash, user.Role, user.Bio, user.ProfileImage)
	if err != nil {
		if isDuplicateEntry(err) {
			return fmt.Errorf("user %w", models.ErrDuplicate)
		}
		r.logger.Error("failed to create user", zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		r.logger.Error("failed to get last insert id", zap.Error(err))
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	user.ID = int(id)
	return nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ? LIMIT 1`

	user, err := scanUser(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %w", models.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get user by id", zap.Error(err), zap.Int("id", id))
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// GetByUsername retrieves a user by username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ? LIMIT 1`

	user, err := scanUser(conn(ctx, r.db).QueryRowContext(ctx, query, username))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ? LIMIT 1`

	user, err := scanUser(conn(ctx, r.db).QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// GetByEmailOrUsername retrieves a user by email or username
func (r *userRepository) GetByEmailOrUsername(ctx context.Context, login string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = ? OR username = ?
		LIMIT 1
	`

	user, err := scanUser(conn(ctx, r.db).QueryRowContext(ctx, query, login, login))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %w", models.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get user by email or username", zap.Error(err), zap.String("login", login))
		return nil, fmt.Errorf("failed to get user by email or username: %w", err)
	}

	return user, nil
}

// ExistsByEmail checks if a user exists with the given email
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.ExistsByEmailExcept(ctx, email, 0)
}

// ExistsByUsername checks if a user exists with the given username
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.ExistsByUsernameExcept(ctx, username, 0)
}

// ExistsByEmailExcept checks if another user than exceptID has the given email
func (r *userRepository) ExistsByEmailExcept(ctx context.Context, email string, exceptID int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = ? AND id <> ?)`

	var exists bool
	err := conn(ctx, r.db).QueryRowContext(ctx, query, email, exceptID).Scan(&exists)
	if err != nil {
		r.logger.Error("failed to check email existence", zap.Error(err), zap.String("email", email))
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}

	return exists, nil
}

// ExistsByUsernameExcept checks if another user than exceptID has the given username
func (r *userRepository) ExistsByUsernameExcept(ctx context.Context, username string, exceptID int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = ? AND id <> ?)`

	var exists bool
	err := conn(ctx, r.db).QueryRowContext(ctx, query, username, exceptID).Scan(&exists)
	if err != nil {
		r.logger.Error("failed to check username existence", zap.Error(err), zap.String("username", username))
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}

	return exists, nil
}

// userFilter builds the WHERE clause shared by GetAll and Count
func userFilter(role models.Role, search string) (string, []any) {
	var conditions []string
	var args []any

	if role != "" {
		conditions = append(conditions, "u.role = ?")
		args = append(args, role)
	}
	if search != "" {
		conditions = append(conditions, "(u.username LIKE ? OR u.email LIKE ?)")
		pattern := containsPattern(search)
		args = append(args, pattern, pattern)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// GetAll retrieves a paginated list of users with optional role filter and search
func (r *userRepository) GetAll(ctx context.Context, page, count int, role models.Role, search string) ([]models.UserListItem, error) {
	whereClause, args := userFilter(role, search)
	offset := (page - 1) * count

	query := fmt.Sprintf(`
		SELECT u.id, u.username, u.email, u.role, u.created_at,
			(SELECT COUNT(*) FROM blogPost p WHERE p.user_id = u.id) AS post_count
		FROM users u
		%s
		ORDER BY u.created_at DESC, u.id DESC
		LIMIT ? OFFSET ?
	`, whereClause)

	args = append(args, count, offset)

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []models.UserListItem{}
	for rows.Next() {
		var user models.UserListItem
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.CreatedAt, &user.PostCount); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

// Count returns the number of users matching the filter
func (r *userRepository) Count(ctx context.Context, role models.Role, search string) (int, error) {
	whereClause, args := userFilter(role, search)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM users u %s`, whereClause)

	var total int
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return total, nil
}

// GetStats returns the published post, comment and received-like counters of a user
func (r *userRepository) GetStats(ctx context.Context, userID int) (*models.ProfileStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM blogPost WHERE user_id = ? AND status = 'published'),
			(SELECT COUNT(*) FROM comments WHERE user_id = ?),
			(SELECT COUNT(*) FROM reactions r JOIN blogPost p ON p.id = r.blog_id WHERE p.user_id = ? AND r.type = 'like')
	`

	stats := &models.ProfileStats{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, userID, userID, userID).Scan(&stats.Posts, &stats.Comments, &stats.Reactions)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return stats, nil
}

// UpdateProfile overwrites username, email, bio and profile image
func (r *userRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET username = ?, email = ?, bio = ?, profile_image = ?
		WHERE id = ?
	`

	_, err := conn(ctx, r.db).ExecContext(ctx, query, user.Username, user.Email, user.Bio, user.ProfileImage, user.ID)
	if err != nil {
		if isDuplicateEntry(err) {
			return fmt.Errorf("user %w", models.ErrDuplicate)
		}
		r.logger.Error("failed to update user profile", zap.Error(err), zap.Int("id", user.ID))
		return fmt.Errorf("failed to update user profile: %w", err)
	}

	return nil
}

// UpdatePassword replaces the password hash of a user
func (r *userRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	query := `UPDATE users SET password_hash = ? WHERE id = ?`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return requireAffected(result, "user")
}

// UpdateRole changes the role of a user
func (r *userRepository) UpdateRole(ctx context.Context, id int, role models.Role) error {
	query := `UPDATE users SET role = ? WHERE id = ?`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, role, id)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	return requireAffected(result, "user")
}

// Delete deletes a user by ID. Posts, comments and reactions go with it via foreign keys.
func (r *userRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM users WHERE id = ?`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("failed to delete user", zap.Error(err), zap.Int("id", id))
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return requireAffected(result, "user")
}
