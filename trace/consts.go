package trace

// Script keywords.
const (
	KeywordMalloc  = "malloc"
	KeywordCalloc  = "calloc"
	KeywordRealloc = "realloc"
	KeywordFree    = "free"
	KeywordFill    = "fill"
	KeywordCheck   = "check"
	KeywordVerify  = "verify"
	KeywordNil     = "nil"

	CommentPrefix = "#"
	Assign        = "="
)

// granuleShift converts arena offsets to overlap-checker granules.
const granuleShift = 3
