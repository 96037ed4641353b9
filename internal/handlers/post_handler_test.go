package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/bloghut/backend/internal/models"
	"github.com/bloghut/backend/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPostRouter(t *testing.T, svc *mockPostService, categories *mockCategoryService, sess *session.Session) http.Handler {
	handler := NewPostHandler(svc, categories, CommentLimits{}, testRenderer(t), zap.NewNop())
	return newTestRouter(sess, handler.RegisterRoutes)
}

func TestPostHandler_Home(t *testing.T) {
	svc := &mockPostService{
		list: &models.PostList{
			Posts:      []models.PostListItem{{ID: 5, Title: "Hello Go", AuthorUsername: "alice", Status: models.PostStatusPublished}},
			Pagination: models.NewPagination(1, models.PostsPerPage, 1),
		},
	}
	categories := &mockCategoryService{categories: []models.Category{{ID: 2, Name: "Tech", Slug: "tech"}}}
	router := newPostRouter(t, svc, categories, session.NewSession("sid", anonymous))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?q=+go+&category=2&page=3", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.PostFilter{CategoryID: 2, Search: "go", Page: 3}, svc.filter)
	body := w.Body.String()
	assert.Contains(t, body, "Hello Go")
	assert.Contains(t, body, "Search results for")
}

func TestPostHandler_Category(t *testing.T) {
	t.Run("unknown slug", func(t *testing.T) {
		sess := session.NewSession("sid", anonymous)
		router := newPostRouter(t, &mockPostService{}, &mockCategoryService{}, sess)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/categories/nope", nil))

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/categories", w.Header().Get("Location"))
	})

	t.Run("known slug filters the listing", func(t *testing.T) {
		svc := &mockPostService{}
		categories := &mockCategoryService{bySlug: &models.Category{ID: 4, Name: "Travel", Slug: "travel"}}
		router := newPostRouter(t, svc, categories, session.NewSession("sid", anonymous))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/categories/travel", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 4, svc.filter.CategoryID)
		assert.Contains(t, w.Body.String(), "Travel")
	})
}

func TestPostHandler_View(t *testing.T) {
	tests := []struct {
		name             string
		path             string
		viewErr          error
		expectedStatus   int
		expectedLocation string
		expectedFlash    string
	}{
		{
			name:           "published post",
			path:           "/posts/3",
			expectedStatus: http.StatusOK,
		},
		{
			name:             "missing post",
			path:             "/posts/3",
			viewErr:          fmt.Errorf("failed to get post: post %w", models.ErrNotFound),
			expectedStatus:   http.StatusSeeOther,
			expectedLocation: "/",
			expectedFlash:    "Post not found",
		},
		{
			name:             "invalid id",
			path:             "/posts/abc",
			expectedStatus:   http.StatusSeeOther,
			expectedLocation: "/",
			expectedFlash:    "Post not found",
		},
		{
			name:           "unexpected error",
			path:           "/posts/3",
			viewErr:        errors.New("connection refused"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPostService{
				viewErr: tt.viewErr,
				page: &models.PostPage{
					Post: &models.Post{ID: 3, UserID: 2, Title: "Trip notes", Content: "<p>Day <strong>one</strong></p>", Status: models.PostStatusPublished, AuthorUsername: "bob"},
				},
			}
			sess := session.NewSession("sid", anonymous)
			router := newPostRouter(t, svc, &mockCategoryService{}, sess)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedLocation != "" {
				assert.Equal(t, tt.expectedLocation, w.Header().Get("Location"))
			}
			if tt.expectedFlash != "" {
				assert.Equal(t, tt.expectedFlash, lastFlash(t, sess).Message)
			}
			if tt.expectedStatus == http.StatusOK {
				assert.Contains(t, w.Body.String(), "<strong>one</strong>")
			}
			if tt.expectedStatus == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "connection refused")
			}
		})
	}
}

func TestPostHandler_CreateRequiresLogin(t *testing.T) {
	svc := &mockPostService{}
	sess := session.NewSession("sid", anonymous)
	router := newPostRouter(t, svc, &mockCategoryService{}, sess)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/posts/new", nil))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login?next=%2Fposts%2Fnew", w.Header().Get("Location"))
	assert.Equal(t, "Please log in to continue", lastFlash(t, sess).Message)
}

func TestPostHandler_Create(t *testing.T) {
	form := url.Values{
		"title":       {"My first post"},
		"content":     {"Some **markdown** content"},
		"category_id": {"2"},
		"status":      {"published"},
	}

	t.Run("validation error keeps the form", func(t *testing.T) {
		svc := &mockPostService{createErr: models.NewValidationError("Title must be between 5 and 255 characters")}
		router := newPostRouter(t, svc, &mockCategoryService{}, session.NewSession("sid", alice))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, formRequest(http.MethodPost, "/posts/new", form))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "Title must be between 5 and 255 characters")
		assert.Contains(t, w.Body.String(), `value="My first post"`)
	})

	t.Run("success", func(t *testing.T) {
		svc := &mockPostService{created: &models.Post{ID: 7, Status: models.PostStatusPublished}}
		sess := session.NewSession("sid", alice)
		router := newPostRouter(t, svc, &mockCategoryService{}, sess)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, formRequest(http.MethodPost, "/posts/new", form))

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/posts/7", w.Header().Get("Location"))
		assert.Equal(t, "Post created and published.", lastFlash(t, sess).Message)

		require.NotNil(t, svc.createReq)
		assert.Equal(t, "My first post", svc.createReq.Title)
		require.NotNil(t, svc.createReq.CategoryID)
		assert.Equal(t, 2, *svc.createReq.CategoryID)
		assert.Equal(t, models.PostStatusPublished, svc.createReq.Status)
		assert.Nil(t, svc.createReq.Image)
	})

	t.Run("multipart with image", func(t *testing.T) {
		svc := &mockPostService{created: &models.Post{ID: 8, Status: models.PostStatusDraft}}
		sess := session.NewSession("sid", alice)
		router := newPostRouter(t, svc, &mockCategoryService{}, sess)

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField("title", "Picture post"))
		require.NoError(t, mw.WriteField("content", "Look at this"))
		require.NoError(t, mw.WriteField("category_id", ""))
		part, err := mw.CreateFormFile("featured_image", "photo.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\nrest"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/posts/new", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "Post created as draft.", lastFlash(t, sess).Message)
		require.NotNil(t, svc.createReq.Image)
		assert.Equal(t, "photo.png", svc.createReq.Image.Filename)
		assert.Equal(t, int64(12), svc.createReq.Image.Size)
		assert.Nil(t, svc.createReq.CategoryID)
	})
}

func TestPostHandler_EditForbidden(t *testing.T) {
	svc := &mockPostService{forEditErr: models.ErrForbidden}
	sess := session.NewSession("sid", alice)
	router := newPostRouter(t, svc, &mockCategoryService{}, sess)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/posts/3/edit", nil))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/my/posts", w.Header().Get("Location"))
	assert.Equal(t, "You do not have permission to do that", lastFlash(t, sess).Message)
}

func TestPostHandler_Update(t *testing.T) {
	svc := &mockPostService{forEdit: &models.Post{ID: 3, UserID: 1, Title: "Old title", Status: models.PostStatusDraft}}
	sess := session.NewSession("sid", alice)
	router := newPostRouter(t, svc, &mockCategoryService{}, sess)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, formRequest(http.MethodPost, "/posts/3/edit", url.Values{
		"title":   {"New title"},
		"content": {"Updated content"},
		"status":  {"draft"},
	}))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/posts/3", w.Header().Get("Location"))
	assert.Equal(t, "Post updated as draft.", lastFlash(t, sess).Message)
}

func TestPostHandler_Delete(t *testing.T) {
	svc := &mockPostService{}
	sess := session.NewSession("sid", alice)
	router := newPostRouter(t, svc, &mockCategoryService{}, sess)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, formRequest(http.MethodPost, "/posts/9/delete", url.Values{}))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/my/posts", w.Header().Get("Location"))
	assert.Equal(t, 9, svc.deletedID)
	assert.Equal(t, "Post deleted.", lastFlash(t, sess).Message)
}

func TestPostHandler_MyPosts(t *testing.T) {
	svc := &mockPostService{}
	router := newPostRouter(t, svc, &mockCategoryService{}, session.NewSession("sid", alice))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/my/posts", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, svc.authorID)
}
