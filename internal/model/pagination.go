package model

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Pagination struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return defaultPageSize
	}
	if p.PageSize > maxPageSize {
		return maxPageSize
	}
	return p.PageSize
}

func (p Pagination) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}
