package handlers

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bloghut/backend/internal/models"
	"github.com/bloghut/backend/internal/session"
	"github.com/bloghut/backend/internal/views"
	"github.com/bloghut/backend/libs/auth/service"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	anonymous = session.Data{}
	alice     = session.Data{UserID: 1, Username: "alice", Role: models.RoleUser}
	admin     = session.Data{UserID: 9, Username: "root", Role: models.RoleAdmin}
)

func testRenderer(t *testing.T) *views.Renderer {
	t.Helper()
	renderer, err := views.New(zap.NewNop())
	require.NoError(t, err)
	return renderer
}

func testSessions() *session.Manager {
	return session.NewManager(nil, service.NewSessionTokenGenerator("secret", time.Hour), false, zap.NewNop())
}

// newTestRouter mounts routes behind a middleware handing out sess to every request
func newTestRouter(sess *session.Session, register func(r chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(session.NewContext(req.Context(), sess)))
		})
	})
	register(r)
	return r
}

func formRequest(method, target string, values url.Values) *http.Request {
	req, _ := http.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func ajaxRequest(method, target, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, target, reader)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Content-Type", "application/json")
	return req
}

// mockAuthService is a mock implementation of AuthService
type mockAuthService struct {
	registerReq  *models.RegisterRequest
	registerErr  error
	loginReq     *models.LoginRequest
	loginUser    *models.User
	loginErr     error
	logoutToken  string
	issuedFor    int
	issueErr     error
	resetEmail   string
	resetErr     error
	validateErr  error
	newPassword  string
	passwordErr  error
}

func (m *mockAuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	m.registerReq = req
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	return &models.User{ID: 42, Username: req.Username, Email: req.Email, Role: models.RoleUser}, nil
}

func (m *mockAuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.User, error) {
	m.loginReq = req
	return m.loginUser, m.loginErr
}

func (m *mockAuthService) Logout(ctx context.Context, rememberToken string) error {
	m.logoutToken = rememberToken
	return nil
}

func (m *mockAuthService) IssueRememberToken(ctx context.Context, userID int) (string, time.Time, error) {
	m.issuedFor = userID
	if m.issueErr != nil {
		return "", time.Time{}, m.issueErr
	}
	return "raw-remember", time.Now().Add(time.Hour), nil
}

func (m *mockAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	m.resetEmail = email
	return m.resetErr
}

func (m *mockAuthService) ValidateResetToken(ctx context.Context, token string) error {
	return m.validateErr
}

func (m *mockAuthService) ResetPassword(ctx context.Context, token, password, confirmPassword string) error {
	m.newPassword = password
	return m.passwordErr
}

// mockPostService is a mock implementation of PostService
type mockPostService struct {
	page       *models.PostPage
	viewErr    error
	createReq  *models.PostRequest
	created    *models.Post
	createErr  error
	updateErr  error
	deletedID  int
	deleteErr  error
	forEdit    *models.Post
	forEditErr error
	list       *models.PostList
	listErr    error
	filter     models.PostFilter
	authorID   int
}

func (m *mockPostService) Create(ctx context.Context, viewer models.Viewer, req *models.PostRequest) (*models.Post, error) {
	m.createReq = req
	return m.created, m.createErr
}

func (m *mockPostService) Update(ctx context.Context, viewer models.Viewer, id int, req *models.PostRequest) (*models.Post, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	post := *m.forEdit
	post.Title = req.Title
	post.Status = req.Status
	return &post, nil
}

func (m *mockPostService) Delete(ctx context.Context, viewer models.Viewer, id int) error {
	m.deletedID = id
	return m.deleteErr
}

func (m *mockPostService) View(ctx context.Context, viewer models.Viewer, id int) (*models.PostPage, error) {
	return m.page, m.viewErr
}

func (m *mockPostService) GetForEdit(ctx context.Context, viewer models.Viewer, id int) (*models.Post, error) {
	return m.forEdit, m.forEditErr
}

func (m *mockPostService) List(ctx context.Context, filter models.PostFilter) (*models.PostList, error) {
	m.filter = filter
	return m.listOrEmpty(), m.listErr
}

func (m *mockPostService) ListByAuthor(ctx context.Context, viewer models.Viewer, authorID, page int) (*models.PostList, error) {
	m.authorID = authorID
	return m.listOrEmpty(), m.listErr
}

func (m *mockPostService) listOrEmpty() *models.PostList {
	if m.list != nil {
		return m.list
	}
	return &models.PostList{Pagination: models.NewPagination(1, models.PostsPerPage, 0)}
}

// mockCategoryService is a mock implementation of CategoryService
type mockCategoryService struct {
	categories []models.Category
	bySlug     *models.Category
	err        error
}

func (m *mockCategoryService) List(ctx context.Context) ([]models.Category, error) {
	return m.categories, m.err
}

func (m *mockCategoryService) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	if m.bySlug == nil || m.bySlug.Slug != slug {
		return nil, models.ErrNotFound
	}
	return m.bySlug, nil
}

// mockCommentService is a mock implementation of CommentService
type mockCommentService struct {
	addReq    *models.AddCommentRequest
	added     *models.Comment
	addErr    error
	page      *models.CommentPage
	offset    int
	limit     int
	deletedID int
	deleteErr error
}

func (m *mockCommentService) Add(ctx context.Context, viewer models.Viewer, req *models.AddCommentRequest) (*models.Comment, error) {
	m.addReq = req
	return m.added, m.addErr
}

func (m *mockCommentService) List(ctx context.Context, viewer models.Viewer, postID, offset, limit int) (*models.CommentPage, error) {
	m.offset = offset
	m.limit = limit
	return m.page, nil
}

func (m *mockCommentService) Delete(ctx context.Context, viewer models.Viewer, id int) error {
	m.deletedID = id
	return m.deleteErr
}

// mockReactionService is a mock implementation of ReactionService
type mockReactionService struct {
	state    *models.ReactionState
	err      error
	lastType models.ReactionType
}

func (m *mockReactionService) SetReaction(ctx context.Context, viewer models.Viewer, blogID int, reactionType models.ReactionType) (*models.ReactionState, error) {
	m.lastType = reactionType
	return m.state, m.err
}

func (m *mockReactionService) GetState(ctx context.Context, viewer models.Viewer, blogID int) (*models.ReactionState, error) {
	return m.state, m.err
}

// mockAdminService is a mock implementation of AdminService
type mockAdminService struct {
	users          *models.UserList
	role           models.Role
	search         string
	toggleErr      error
	deleteCategory error
	categories     []models.Category
	createReq      *models.CategoryRequest
	createErr      error
}

func (m *mockAdminService) ListUsers(ctx context.Context, page int, role models.Role, search string) (*models.UserList, error) {
	m.role = role
	m.search = search
	if m.users == nil {
		return &models.UserList{Pagination: models.NewPagination(1, models.AdminPageSize, 0)}, nil
	}
	return m.users, nil
}

func (m *mockAdminService) ToggleUserRole(ctx context.Context, viewer models.Viewer, userID int) (models.Role, error) {
	if m.toggleErr != nil {
		return "", m.toggleErr
	}
	return models.RoleAdmin, nil
}

func (m *mockAdminService) DeleteUser(ctx context.Context, viewer models.Viewer, userID int) error {
	return nil
}

func (m *mockAdminService) ListPosts(ctx context.Context, filter models.PostFilter) (*models.PostList, error) {
	return &models.PostList{Pagination: models.NewPagination(1, models.AdminPageSize, 0)}, nil
}

func (m *mockAdminService) TogglePostStatus(ctx context.Context, viewer models.Viewer, postID int) (models.PostStatus, error) {
	return models.PostStatusPublished, nil
}

func (m *mockAdminService) DeletePost(ctx context.Context, viewer models.Viewer, postID int) error {
	return nil
}

func (m *mockAdminService) ListComments(ctx context.Context, page int, search string) (*models.CommentList, error) {
	return &models.CommentList{Pagination: models.NewPagination(1, models.AdminPageSize, 0)}, nil
}

func (m *mockAdminService) DeleteComment(ctx context.Context, viewer models.Viewer, commentID int) error {
	return nil
}

func (m *mockAdminService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return m.categories, nil
}

func (m *mockAdminService) GetCategory(ctx context.Context, id int) (*models.Category, error) {
	for i := range m.categories {
		if m.categories[i].ID == id {
			return &m.categories[i], nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *mockAdminService) CreateCategory(ctx context.Context, viewer models.Viewer, req *models.CategoryRequest) (*models.Category, error) {
	m.createReq = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Category{ID: 3, Name: req.Name}, nil
}

func (m *mockAdminService) UpdateCategory(ctx context.Context, viewer models.Viewer, id int, req *models.CategoryRequest) (*models.Category, error) {
	return &models.Category{ID: id, Name: req.Name}, nil
}

func (m *mockAdminService) DeleteCategory(ctx context.Context, viewer models.Viewer, id int) error {
	return m.deleteCategory
}
