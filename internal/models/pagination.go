package models

// Pagination describes the position of a page within a listing
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPagination computes the page count and clamps page into range
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 1
	}
	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// HasPrev reports whether a previous page exists
func (p Pagination) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }

// Pages returns the page numbers 1..TotalPages
func (p Pagination) Pages() []int {
	pages := make([]int, p.TotalPages)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

// PostList is one page of posts
type PostList struct {
	Posts      []PostListItem
	Pagination Pagination
}

// UserList is one page of the admin user listing
type UserList struct {
	Users      []UserListItem
	Pagination Pagination
}

// CommentList is one page of the admin comment listing
type CommentList struct {
	Comments   []CommentListItem
	Pagination Pagination
}
