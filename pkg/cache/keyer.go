package cache

import "strings"

// Keyer builds cache keys for each upstream.
type Keyer interface {
	// HTTPKey keys a raw HTTP response body.
	HTTPKey(namespace, key string) string
	// TranslateKey keys a translation of text between two language codes.
	TranslateKey(source, target, text string) string
	// WolframKey keys a Wolfram|Alpha query result.
	WolframKey(query string) string
	// AvatarKey keys a user's avatar image.
	AvatarKey(userID string) string
}

// DefaultKeyer hashes free text so keys stay short and filesystem safe.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default Keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

func (DefaultKeyer) TranslateKey(source, target, text string) string {
	return hashKey("translate:"+source+"-"+target, text)
}

func (DefaultKeyer) WolframKey(query string) string {
	return hashKey("wolfram", strings.TrimSpace(query))
}

func (DefaultKeyer) AvatarKey(userID string) string {
	return "avatar:" + userID
}
