// Package giturl parses git remote URLs and rewrites them between protocols.
package giturl

import (
	"fmt"
	"regexp"
	"strings"
)

// Syntax identifies which of the two git URL forms a remote string uses.
type Syntax string

const (
	// SyntaxURL is the full URL form: scheme://[user@]host[:port]/path.git
	SyntaxURL Syntax = "url"
	// SyntaxSSH is the scp-like form: user@host:path.git
	SyntaxSSH Syntax = "ssh"
)

// Protocol is a target protocol for Format.
type Protocol string

const (
	ProtocolSSH   Protocol = "ssh"
	ProtocolHTTPS Protocol = "https"
	ProtocolHTTP  Protocol = "http"
)

// ParseProtocol validates a user-supplied protocol name.
func ParseProtocol(s string) (Protocol, error) {
	switch Protocol(s) {
	case ProtocolSSH, ProtocolHTTPS, ProtocolHTTP:
		return Protocol(s), nil
	}
	return "", fmt.Errorf("unknown protocol %q (want ssh, https, or http)", s)
}

// Parts holds the components of a parsed git URL.
type Parts struct {
	Syntax    Syntax
	Transport string // "https://" etc, only for SyntaxURL
	User      string // includes trailing "@" when present
	Host      string
	Port      string // includes leading ":" when present
	Path      string // repository path ending in .git
}

var syntaxPatterns = []struct {
	syntax Syntax
	re     *regexp.Regexp
}{
	{SyntaxURL, regexp.MustCompile(`^(?P<transport>\w+://)` +
		`((?P<user>\w+[^@/]*@))?` +
		`(?P<host>[a-z0-9_.-]+)` +
		`((?P<port>:[0-9]+))?` +
		`/(?P<path>.*\.git)$`)},
	{SyntaxSSH, regexp.MustCompile(`^(?P<user>\w+[^@/]*@)` +
		`(?P<host>[a-z0-9_.-]+)` +
		`:(?P<path>.*\.git)$`)},
}

// URL wraps a raw git remote string.
type URL struct {
	raw string
}

// New wraps a raw remote string. Parsing is deferred to Parts/Format.
func New(raw string) *URL {
	return &URL{raw: raw}
}

// String returns the original remote string unchanged.
func (u *URL) String() string {
	return u.raw
}

// Parts parses the URL into its components.
func (u *URL) Parts() (*Parts, error) {
	for _, sp := range syntaxPatterns {
		m := sp.re.FindStringSubmatch(u.raw)
		if m == nil {
			continue
		}
		parts := &Parts{Syntax: sp.syntax}
		for i, name := range sp.re.SubexpNames() {
			if i == 0 || name == "" {
				continue
			}
			switch name {
			case "transport":
				parts.Transport = m[i]
			case "user":
				parts.User = m[i]
			case "host":
				parts.Host = m[i]
			case "port":
				parts.Port = m[i]
			case "path":
				parts.Path = m[i]
			}
		}
		return parts, nil
	}
	return nil, fmt.Errorf("invalid git URL %q", u.raw)
}

// Format rewrites the URL to the given protocol. Host and path are
// preserved; user and port are normalized for the target form.
func (u *URL) Format(protocol Protocol) (string, error) {
	parts, err := u.Parts()
	if err != nil {
		return "", err
	}
	if protocol == ProtocolSSH {
		return "git@" + parts.Host + ":" + parts.Path, nil
	}
	return string(protocol) + "://" + parts.Host + "/" + parts.Path, nil
}

// SamePath reports whether two remote strings reference the same repository
// path, ignoring protocol differences.
func SamePath(a, b string) bool {
	pa, err := New(a).Parts()
	if err != nil {
		return false
	}
	pb, err := New(b).Parts()
	if err != nil {
		return false
	}
	return pa.Path == pb.Path && pa.Host == pb.Host
}

// RepoName extracts the repository name from a remote string: the last path
// segment with any .git suffix stripped. Falls back to raw string splitting
// when the URL does not parse.
func RepoName(remote string) string {
	path := remote
	if parts, err := New(remote).Parts(); err == nil {
		path = parts.Path
	}
	name := path
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, ".git")
}
