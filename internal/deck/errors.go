package deck

import (
	"errors"
	"fmt"
)

// Structural declaration errors. These are authoring bugs: a post that
// triggers one cannot be presented.
var (
	ErrSegmentOutsideSlide = errors.New("segment declared outside any slide")
	ErrEmptySlide          = errors.New("slide has no segments")
	ErrSealed              = errors.New("registry already built")
	ErrUnknownKind         = errors.New("unknown slide kind")
)

// DeclarationError locates a structural error in the authored source.
type DeclarationError struct {
	Line  int // 1-based source line, 0 if unknown
	Slide int // Slide index involved, -1 if none
	Err   error
}

func (e *DeclarationError) Error() string {
	switch {
	case e.Line > 0 && e.Slide >= 0:
		return fmt.Sprintf("line %d: slide %d: %v", e.Line, e.Slide, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	case e.Slide >= 0:
		return fmt.Sprintf("slide %d: %v", e.Slide, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *DeclarationError) Unwrap() error {
	return e.Err
}

// IsStructural reports whether err is a declaration error.
func IsStructural(err error) bool {
	var de *DeclarationError
	return errors.As(err, &de)
}
