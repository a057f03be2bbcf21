package engine

import (
	"github.com/JakeFAU/trademark-crawler/internal/navigation"
)

// UserData travels with a request across attempts.
type UserData struct {
	OfficeCode string
	// ParentID links the request to the navigation that spawned it.
	ParentID string
	// Navigation is the live navigation of the latest attempt.
	Navigation *navigation.Navigation
	// Tags are source-specific values copied onto every navigation.
	Tags navigation.Tags
}

// Spawn returns user data for a child request: the live navigation is
// dropped and its id becomes the child's parent id.
func (u UserData) Spawn() UserData {
	child := UserData{OfficeCode: u.OfficeCode, Tags: cloneTags(u.Tags)}
	if u.Navigation != nil {
		child.ParentID = u.Navigation.ID()
	}
	return child
}

// Tag returns the string tag key, or "".
func (u UserData) Tag(key string) string {
	if u.Tags == nil {
		return ""
	}
	s, _ := u.Tags[key].(string)
	return s
}

// Request is one unit of work.
type Request struct {
	ID      string
	URL     string
	Method  string
	Headers map[string]string
	// UniqueKey deduplicates requests; it defaults to the URL.
	UniqueKey string
	UserData  UserData
	// RetryCount is the number of attempts already made.
	RetryCount int
	// LoadedURL is the URL the browser ended up on.
	LoadedURL string
}

func cloneTags(src navigation.Tags) navigation.Tags {
	if src == nil {
		return nil
	}
	dst := make(navigation.Tags, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
