package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bloghut/backend/internal/models"
)

// mockTransactor runs fn directly
type mockTransactor struct {
	calls int
}

func (m *mockTransactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

// mockUserRepository is a mock implementation of the user repositories
type mockUserRepository struct {
	user           *models.User
	getErr         error
	createErr      error
	usernameExists bool
	emailExists    bool
	existsErr      error
	updateErr      error
	passwordErr    error
	stats          *models.ProfileStats
	users          []models.UserListItem
	total          int

	created         *models.User
	updatedProfile  *models.User
	updatedPassword string
	updatedRole     models.Role
	deletedID       int
}

func (m *mockUserRepository) get() (*models.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.user == nil {
		return nil, fmt.Errorf("user %w", models.ErrNotFound)
	}
	user := *m.user
	return &user, nil
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = 42
	m.created = user
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	return m.get()
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.get()
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.get()
}

func (m *mockUserRepository) GetByEmailOrUsername(ctx context.Context, login string) (*models.User, error) {
	return m.get()
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return m.emailExists, m.existsErr
}

func (m *mockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return m.usernameExists, m.existsErr
}

func (m *mockUserRepository) ExistsByEmailExcept(ctx context.Context, email string, exceptID int) (bool, error) {
	return m.emailExists, m.existsErr
}

func (m *mockUserRepository) ExistsByUsernameExcept(ctx context.Context, username string, exceptID int) (bool, error) {
	return m.usernameExists, m.existsErr
}

func (m *mockUserRepository) GetAll(ctx context.Context, page, count int, role models.Role, search string) ([]models.UserListItem, error) {
	return m.users, m.getErr
}

func (m *mockUserRepository) Count(ctx context.Context, role models.Role, search string) (int, error) {
	return m.total, m.getErr
}

func (m *mockUserRepository) GetStats(ctx context.Context, userID int) (*models.ProfileStats, error) {
	if m.stats == nil {
		return &models.ProfileStats{}, nil
	}
	return m.stats, nil
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updatedProfile = user
	return nil
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	if m.passwordErr != nil {
		return m.passwordErr
	}
	m.updatedPassword = passwordHash
	return nil
}

func (m *mockUserRepository) UpdateRole(ctx context.Context, id int, role models.Role) error {
	m.updatedRole = role
	return m.updateErr
}

func (m *mockUserRepository) Delete(ctx context.Context, id int) error {
	m.deletedID = id
	return m.updateErr
}

// mockRememberTokenRepository is a mock implementation of RememberTokenRepository
type mockRememberTokenRepository struct {
	token  *models.RememberToken
	getErr error

	created       *models.RememberToken
	lookedUp      string
	deletedHash   string
	deletedByUser int
}

func (m *mockRememberTokenRepository) Create(ctx context.Context, token *models.RememberToken) error {
	m.created = token
	return nil
}

func (m *mockRememberTokenRepository) GetValid(ctx context.Context, tokenHash string, now time.Time) (*models.RememberToken, error) {
	m.lookedUp = tokenHash
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.token == nil {
		return nil, fmt.Errorf("token %w", models.ErrNotFound)
	}
	return m.token, nil
}

func (m *mockRememberTokenRepository) DeleteByHash(ctx context.Context, tokenHash string) error {
	m.deletedHash = tokenHash
	return nil
}

func (m *mockRememberTokenRepository) DeleteByUser(ctx context.Context, userID int) error {
	m.deletedByUser = userID
	return nil
}

// mockPasswordResetRepository is a mock implementation of PasswordResetRepository
type mockPasswordResetRepository struct {
	reset *models.PasswordReset

	created       *models.PasswordReset
	markedUsed    int
	deletedByUser int
}

func (m *mockPasswordResetRepository) Create(ctx context.Context, reset *models.PasswordReset) error {
	m.created = reset
	return nil
}

func (m *mockPasswordResetRepository) GetValid(ctx context.Context, tokenHash string, now time.Time) (*models.PasswordReset, error) {
	if m.reset == nil || m.reset.TokenHash != tokenHash {
		return nil, fmt.Errorf("reset token %w", models.ErrNotFound)
	}
	return m.reset, nil
}

func (m *mockPasswordResetRepository) MarkUsed(ctx context.Context, id int, usedAt time.Time) error {
	m.markedUsed = id
	return nil
}

func (m *mockPasswordResetRepository) DeleteByUser(ctx context.Context, userID int) error {
	m.deletedByUser = userID
	return nil
}

// mockBadgeAwarder records awarded badges
type mockBadgeAwarder struct {
	err               error
	registrationCalls []int
	postCounts        []int
}

func (m *mockBadgeAwarder) AwardRegistration(ctx context.Context, userID int) error {
	m.registrationCalls = append(m.registrationCalls, userID)
	return m.err
}

func (m *mockBadgeAwarder) AwardForPostCount(ctx context.Context, userID, postCount int) error {
	m.postCounts = append(m.postCounts, postCount)
	return m.err
}

// mockEmailQueue records enqueued emails
type mockEmailQueue struct {
	err       error
	welcome   []string
	resetURLs []string
}

func (m *mockEmailQueue) EnqueueWelcome(ctx context.Context, email, username string) error {
	m.welcome = append(m.welcome, email)
	return m.err
}

func (m *mockEmailQueue) EnqueuePasswordReset(ctx context.Context, email, username, resetURL string) error {
	m.resetURLs = append(m.resetURLs, resetURL)
	return m.err
}

// mockPostRepository is a mock implementation of the post repositories
type mockPostRepository struct {
	post        *models.Post
	getErr      error
	createErr   error
	updateErr   error
	deleteErr   error
	viewsErr    error
	posts       []models.PostListItem
	total       int
	countByUser int
	images      []string

	created   *models.Post
	updated   *models.Post
	deletedID int
	views     int
	status    models.PostStatus
	filters   []models.PostFilter
	listCalls int
}

func (m *mockPostRepository) Create(ctx context.Context, post *models.Post) error {
	if m.createErr != nil {
		return m.createErr
	}
	post.ID = 7
	m.created = post
	return nil
}

func (m *mockPostRepository) GetByID(ctx context.Context, id int) (*models.Post, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.post == nil {
		return nil, fmt.Errorf("post %w", models.ErrNotFound)
	}
	post := *m.post
	return &post, nil
}

func (m *mockPostRepository) Update(ctx context.Context, post *models.Post) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = post
	return nil
}

func (m *mockPostRepository) UpdateStatus(ctx context.Context, id int, status models.PostStatus) error {
	m.status = status
	return m.updateErr
}

func (m *mockPostRepository) Delete(ctx context.Context, id int) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedID = id
	return nil
}

func (m *mockPostRepository) IncrementViews(ctx context.Context, id int) error {
	if m.viewsErr != nil {
		return m.viewsErr
	}
	m.views++
	return nil
}

func (m *mockPostRepository) List(ctx context.Context, filter models.PostFilter) ([]models.PostListItem, error) {
	m.listCalls++
	m.filters = append(m.filters, filter)
	return m.posts, nil
}

func (m *mockPostRepository) Count(ctx context.Context, filter models.PostFilter) (int, error) {
	m.filters = append(m.filters, filter)
	return m.total, nil
}

func (m *mockPostRepository) CountByUser(ctx context.Context, userID int) (int, error) {
	return m.countByUser, nil
}

func (m *mockPostRepository) ImagesByUser(ctx context.Context, userID int) ([]string, error) {
	return m.images, nil
}

// mockCommentRepository is a mock implementation of the comment repositories
type mockCommentRepository struct {
	byID      map[int]*models.Comment
	list      []models.Comment
	total     int
	createErr error
	deleteErr error
	all       []models.CommentListItem

	created       *models.Comment
	deletedID     int
	deletedByPost int
	offset        int
	limit         int
}

func (m *mockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if m.createErr != nil {
		return m.createErr
	}
	comment.ID = 100
	m.created = comment
	if m.byID == nil {
		m.byID = map[int]*models.Comment{}
	}
	stored := *comment
	stored.Username = "alice"
	m.byID[comment.ID] = &stored
	return nil
}

func (m *mockCommentRepository) GetByID(ctx context.Context, id int) (*models.Comment, error) {
	if comment, ok := m.byID[id]; ok {
		return comment, nil
	}
	return nil, fmt.Errorf("comment %w", models.ErrNotFound)
}

func (m *mockCommentRepository) ListByPost(ctx context.Context, postID, offset, limit int) ([]models.Comment, error) {
	m.offset, m.limit = offset, limit
	return m.list, nil
}

func (m *mockCommentRepository) CountByPost(ctx context.Context, postID int) (int, error) {
	return m.total, nil
}

func (m *mockCommentRepository) Delete(ctx context.Context, id int) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedID = id
	return nil
}

func (m *mockCommentRepository) DeleteByPost(ctx context.Context, postID int) (int, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	m.deletedByPost = postID
	return len(m.list), nil
}

func (m *mockCommentRepository) GetAll(ctx context.Context, page, count int, search string) ([]models.CommentListItem, error) {
	return m.all, nil
}

func (m *mockCommentRepository) Count(ctx context.Context, search string) (int, error) {
	return m.total, nil
}

// mockReactionRepository keeps the reactions of a single post in memory
type mockReactionRepository struct {
	reactions     map[int]models.ReactionType
	toggleErr     error
	deletedByPost int
}

func newMockReactionRepository() *mockReactionRepository {
	return &mockReactionRepository{reactions: map[int]models.ReactionType{}}
}

func (m *mockReactionRepository) Toggle(ctx context.Context, userID, blogID int, reactionType models.ReactionType) (*models.ReactionType, error) {
	if m.toggleErr != nil {
		return nil, m.toggleErr
	}
	if current, ok := m.reactions[userID]; ok && current == reactionType {
		delete(m.reactions, userID)
		return nil, nil
	}
	m.reactions[userID] = reactionType
	return &reactionType, nil
}

func (m *mockReactionRepository) GetCounts(ctx context.Context, blogID int) (*models.ReactionCounts, error) {
	counts := &models.ReactionCounts{}
	for _, t := range m.reactions {
		if t == models.ReactionLike {
			counts.Likes++
		} else {
			counts.Dislikes++
		}
	}
	return counts, nil
}

func (m *mockReactionRepository) GetUserReaction(ctx context.Context, userID, blogID int) (*models.ReactionType, error) {
	if t, ok := m.reactions[userID]; ok {
		return &t, nil
	}
	return nil, nil
}

func (m *mockReactionRepository) DeleteByPost(ctx context.Context, blogID int) (int, error) {
	m.deletedByPost = blogID
	n := len(m.reactions)
	m.reactions = map[int]models.ReactionType{}
	return n, nil
}

// mockCategoryRepository is a mock implementation of CategoryRepository
type mockCategoryRepository struct {
	category   *models.Category
	categories []models.Category
	slugExists bool
	postCount  int
	createErr  error
	deleteErr  error

	created   *models.Category
	updated   *models.Category
	deletedID int
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	if m.createErr != nil {
		return m.createErr
	}
	category.ID = 3
	m.created = category
	return nil
}

func (m *mockCategoryRepository) GetByID(ctx context.Context, id int) (*models.Category, error) {
	if m.category == nil || m.category.ID != id {
		return nil, fmt.Errorf("category %w", models.ErrNotFound)
	}
	return m.category, nil
}

func (m *mockCategoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	if m.category == nil || m.category.Slug != slug {
		return nil, fmt.Errorf("category %w", models.ErrNotFound)
	}
	return m.category, nil
}

func (m *mockCategoryRepository) GetAll(ctx context.Context) ([]models.Category, error) {
	return m.categories, nil
}

func (m *mockCategoryRepository) ExistsBySlug(ctx context.Context, slug string, exceptID int) (bool, error) {
	return m.slugExists, nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *models.Category) error {
	m.updated = category
	return nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id int) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedID = id
	return nil
}

func (m *mockCategoryRepository) CountPosts(ctx context.Context, id int) (int, error) {
	return m.postCount, nil
}

// mockImageStore records saved and deleted images
type mockImageStore struct {
	saveErr error
	saved   []string
	deleted []string
}

func (m *mockImageStore) SaveImage(ctx context.Context, upload *models.Upload, mediaType models.MediaType) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	name := fmt.Sprintf("new-%d.png", len(m.saved)+1)
	m.saved = append(m.saved, name)
	return name, nil
}

func (m *mockImageStore) DeleteImage(ctx context.Context, filename string, mediaType models.MediaType) {
	if filename != "" {
		m.deleted = append(m.deleted, string(mediaType)+"/"+filename)
	}
}

// mockPostVisibility returns a fixed post
type mockPostVisibility struct {
	post *models.Post
	err  error
}

func (m *mockPostVisibility) GetVisible(ctx context.Context, viewer models.Viewer, id int) (*models.Post, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.post == nil {
		return nil, fmt.Errorf("post %w", models.ErrNotFound)
	}
	return m.post, nil
}

// mockStorage keeps written files in memory
type mockStorage struct {
	createErr error
	files     map[string]*bytes.Buffer
	deleted   []string
}

func newMockStorage() *mockStorage {
	return &mockStorage{files: map[string]*bytes.Buffer{}}
}

type bufferCloser struct {
	*bytes.Buffer
}

func (bufferCloser) Close() error { return nil }

func (m *mockStorage) Create(id, mediaType string) (io.WriteCloser, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	buf := &bytes.Buffer{}
	m.files[mediaType+"/"+id] = buf
	return bufferCloser{buf}, nil
}

func (m *mockStorage) Delete(id, mediaType string) error {
	m.deleted = append(m.deleted, mediaType+"/"+id)
	delete(m.files, mediaType+"/"+id)
	return nil
}

var (
	anonymous = models.Viewer{}
	alice     = models.Viewer{UserID: 1, Username: "alice", Role: models.RoleUser}
	bob       = models.Viewer{UserID: 2, Username: "bob", Role: models.RoleUser}
	admin     = models.Viewer{UserID: 9, Username: "root", Role: models.RoleAdmin}
)
