package feed

import "errors"

var (
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInvalidContentType  = errors.New("invalid content type")
	ErrFeedParse           = errors.New("feed parse error")
	ErrItemMissingCategory = errors.New("item missing category")
	ErrXMLEmit             = errors.New("xml emit error")
)
