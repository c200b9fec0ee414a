package giturl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParts_SSHSyntax(t *testing.T) {
	u := New("git@gitlab.kitware.com:computer-vision/netharn.git")

	parts, err := u.Parts()
	require.NoError(t, err)

	assert.Equal(t, SyntaxSSH, parts.Syntax)
	assert.Equal(t, "git@", parts.User)
	assert.Equal(t, "gitlab.kitware.com", parts.Host)
	assert.Equal(t, "computer-vision/netharn.git", parts.Path)
	assert.Empty(t, parts.Transport)
}

func TestParts_URLSyntax(t *testing.T) {
	u := New("https://github.com/Erotemic/ubelt.git")

	parts, err := u.Parts()
	require.NoError(t, err)

	assert.Equal(t, SyntaxURL, parts.Syntax)
	assert.Equal(t, "https://", parts.Transport)
	assert.Equal(t, "github.com", parts.Host)
	assert.Equal(t, "Erotemic/ubelt.git", parts.Path)
}

func TestParts_URLSyntaxWithUserAndPort(t *testing.T) {
	u := New("ssh://git@example.com:2222/group/project.git")

	parts, err := u.Parts()
	require.NoError(t, err)

	assert.Equal(t, SyntaxURL, parts.Syntax)
	assert.Equal(t, "ssh://", parts.Transport)
	assert.Equal(t, "git@", parts.User)
	assert.Equal(t, "example.com", parts.Host)
	assert.Equal(t, ":2222", parts.Port)
	assert.Equal(t, "group/project.git", parts.Path)
}

func TestParts_Invalid(t *testing.T) {
	_, err := New("not a git url").Parts()
	assert.Error(t, err)
}

func TestFormat_RoundTrip(t *testing.T) {
	ssh := "git@github.com:Erotemic/ubelt.git"
	https := "https://github.com/Erotemic/ubelt.git"

	got, err := New(ssh).Format(ProtocolHTTPS)
	require.NoError(t, err)
	assert.Equal(t, https, got)

	got, err = New(https).Format(ProtocolSSH)
	require.NoError(t, err)
	assert.Equal(t, ssh, got)
}

func TestFormat_DropsPortOnSchemeForm(t *testing.T) {
	got, err := New("ssh://git@example.com:2222/group/project.git").Format(ProtocolHTTPS)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/group/project.git", got)
}

func TestFormat_HTTP(t *testing.T) {
	got, err := New("git@example.com:group/project.git").Format(ProtocolHTTP)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/group/project.git", got)
}

func TestParseProtocol(t *testing.T) {
	for _, s := range []string{"ssh", "https", "http"} {
		p, err := ParseProtocol(s)
		require.NoError(t, err)
		assert.Equal(t, Protocol(s), p)
	}

	_, err := ParseProtocol("git")
	assert.Error(t, err)
}

func TestSamePath(t *testing.T) {
	assert.True(t, SamePath(
		"git@github.com:Erotemic/ubelt.git",
		"https://github.com/Erotemic/ubelt.git",
	))
	assert.False(t, SamePath(
		"git@github.com:Erotemic/ubelt.git",
		"https://github.com/Erotemic/netharn.git",
	))
	assert.False(t, SamePath("garbage", "https://github.com/Erotemic/ubelt.git"))
}

func TestRepoName(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"https://github.com/Erotemic/ubelt.git", "ubelt"},
		{"git@gitlab.kitware.com:computer-vision/netharn.git", "netharn"},
		{"https://github.com/Erotemic/xdoctest.git", "xdoctest"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RepoName(tt.remote))
	}
}
