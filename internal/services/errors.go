package services

import "errors"

// Sentinel errors returned by the service layer. The REST resources
// translate them into the dispatch error taxonomy.
var (
	ErrPageNotFound   = errors.New("page not found")
	ErrPageExists     = errors.New("page already exists")
	ErrInvalidSlug    = errors.New("invalid page slug")
	ErrUserNotFound   = errors.New("user not found")
	ErrBadCredentials = errors.New("bad credentials")
)
