// Package pagination binds page/page_size query parameters and maps them to
// row windows for the storage adapters.
package pagination

// Page size limits.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Pagination is bound from the page and page_size query parameters. Pages are
// 1-based.
type Pagination struct {
	Page     int `form:"page" binding:"min=1"`
	PageSize int `form:"page_size" binding:"min=1,max=100"`
}

// New returns the first page at the default size.
func New() *Pagination {
	return &Pagination{Page: 1, PageSize: DefaultPageSize}
}

// Limit returns the page size clamped to [1, MaxPageSize].
func (p *Pagination) Limit() int {
	return clamp(p.PageSize)
}

// Offset returns the number of rows before page. A page below 1 is the first page.
func Offset(page, pageSize int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * clamp(pageSize)
}

// Bounds returns the slice bounds of page within n rows. A pageSize below 1
// selects every row.
func Bounds(n, page, pageSize int) (start, end int) {
	if pageSize < 1 {
		return 0, n
	}
	start = min(Offset(page, pageSize), n)
	end = min(start+clamp(pageSize), n)
	return start, end
}

func clamp(pageSize int) int {
	switch {
	case pageSize < 1:
		return DefaultPageSize
	case pageSize > MaxPageSize:
		return MaxPageSize
	default:
		return pageSize
	}
}
