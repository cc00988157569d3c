package resource

// List is one page of a collection.
type List[T any] struct {
	Count    int
	Page     int
	PageSize int
	Pages    int
	Results  []T
}

// NewList builds a page and derives Pages from count and pageSize.
func NewList[T any](count, page, pageSize int, results []T) List[T] {
	if results == nil {
		results = []T{}
	}
	return List[T]{
		Count:    count,
		Page:     page,
		PageSize: pageSize,
		Pages:    TotalPages(count, pageSize),
		Results:  results,
	}
}

// TotalPages returns ceil(count / pageSize), or 0 when pageSize is not positive.
func TotalPages(count, pageSize int) int {
	if pageSize <= 0 || count <= 0 {
		return 0
	}
	return (count + pageSize - 1) / pageSize
}

// HasPrev reports whether a page precedes this one.
func (l List[T]) HasPrev() bool { return l.Page > 1 }

// HasNext reports whether a page follows this one.
func (l List[T]) HasNext() bool { return l.Page < l.Pages }

// ValidationError is a message attributed to a form field. An empty Field
// marks a form-level error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NonField reports whether the error belongs to the form rather than a field.
func (e ValidationError) NonField() bool { return e.Field == "" }
