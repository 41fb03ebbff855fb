package revision

import (
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-wandern/wandern/pkg/wanderrors"
)

// DefaultFileFormat matches the format new revisions are saved under when a
// configuration doesn't override it.
const DefaultFileFormat = "{version}-{datetime:%Y%m%d_%H%M%S}-{message}"

// strftimeTranslation maps the handful of strftime-style tokens the default
// file format (and any config override) may use to their Go reference-time
// equivalents. Go's time package has no strftime support, so a
// {datetime:%Y%m%d} spec has to be rewritten token-by-token before being
// handed to time.Format.
var strftimeTranslation = []struct {
	token, layout string
}{
	{"%Y", "2006"},
	{"%m", "01"},
	{"%d", "02"},
	{"%H", "15"},
	{"%M", "04"},
	{"%S", "05"},
}

func translateStrftime(spec string) string {
	layout := spec
	for _, t := range strftimeTranslation {
		layout = strings.ReplaceAll(layout, t.token, t.layout)
	}
	return layout
}

// Slug computes the {slug} placeholder: a base64 URL-safe encoding of the
// message's SHA-256 digest, alphanumeric characters only, truncated to 10.
func Slug(message string) string {
	sum := sha256.Sum256([]byte(message))
	encoded := base64.URLEncoding.EncodeToString(sum[:])
	var b strings.Builder
	for _, r := range encoded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	slug := b.String()
	if len(slug) > 10 {
		slug = slug[:10]
	}
	return slug
}

// RenderFilename expands format against a single new revision, substituting
// {version}, {slug}, {message}, {author}, {epoch}, and {datetime:<spec>}.
// The result always ends in .sql.
func RenderFilename(format, version, message, author string) (string, error) {
	if version == "" && message == "" {
		return "", wanderrors.Config("version or message is required to render a migration filename")
	}
	now := time.Now().UTC()

	out := format
	out = strings.ReplaceAll(out, "{version}", normalizeVersion(version))
	out = strings.ReplaceAll(out, "{slug}", Slug(message))
	out = strings.ReplaceAll(out, "{message}", strings.ReplaceAll(message, " ", "_"))
	out = strings.ReplaceAll(out, "{author}", author)
	out = strings.ReplaceAll(out, "{epoch}", strconv.FormatInt(now.Unix(), 10))
	out = expandDatetime(out, now)

	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", wanderrors.Config("unresolved placeholder in file format %q", format)
	}
	if !strings.HasSuffix(out, ".sql") {
		out += ".sql"
	}
	return out, nil
}

// normalizeVersion strips leading zeros from a purely numeric version
// ("0001" -> "1"), leaving anything else (hex ids, slugs) untouched.
func normalizeVersion(version string) string {
	n, err := strconv.Atoi(version)
	if err != nil {
		return version
	}
	return strconv.Itoa(n)
}

// expandDatetime rewrites every {datetime:<strftime-spec>} occurrence in s.
func expandDatetime(s string, at time.Time) string {
	const prefix = "{datetime:"
	for {
		start := strings.Index(s, prefix)
		if start == -1 {
			return s
		}
		end := strings.Index(s[start:], "}")
		if end == -1 {
			return s
		}
		end += start
		spec := s[start+len(prefix) : end]
		rendered := at.Format(translateStrftime(spec))
		s = s[:start] + rendered + s[end+1:]
	}
}
