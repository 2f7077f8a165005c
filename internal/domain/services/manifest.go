package services

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ochairo/plugship/internal/domain/entities"
)

// ErrNoPluginRoot is returned when a plugin.xml has no closing </idea-plugin>
var ErrNoPluginRoot = errors.New("manifest has no </idea-plugin> root element")

var (
	ideaVersionPattern = regexp.MustCompile(`(?s)<idea-version\b[^>]*/>|<idea-version\b[^>]*>.*?</idea-version>`)
	versionPattern     = regexp.MustCompile(`(?s)<version>.*?</version>`)
	xmlEscaper         = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
)

// opaquePattern matches comments and CDATA sections. Unterminated ones run to the end.
var opaquePattern = regexp.MustCompile(`(?s)<!--.*?(?:-->|$)|<!\[CDATA\[.*?(?:\]\]>|$)`)

const pluginRootClose = "</idea-plugin>"

// ManifestPatcher injects release values into plugin manifests.
// Values are forwarded literally; wildcard semantics belong to the host.
type ManifestPatcher struct{}

// NewManifestPatcher creates a new manifest patcher
func NewManifestPatcher() *ManifestPatcher {
	return &ManifestPatcher{}
}

// Patch sets <version> and <idea-version> in an existing plugin.xml.
// Everything outside the two elements is left untouched.
func (p *ManifestPatcher) Patch(pluginXML []byte, m entities.Manifest) ([]byte, error) {
	if rootCloseIndex(pluginXML) < 0 {
		return nil, ErrNoPluginRoot
	}

	out := replaceOrInsert(pluginXML, versionPattern, versionElement(m.Version))
	out = replaceOrInsert(out, ideaVersionPattern, ideaVersionElement(m.Compatibility))
	return out, nil
}

// Render produces a minimal plugin.xml for projects without one
func (p *ManifestPatcher) Render(m entities.Manifest) []byte {
	var b bytes.Buffer
	b.WriteString("<idea-plugin>\n")
	if m.PluginID != "" {
		fmt.Fprintf(&b, "  <id>%s</id>\n", escape(m.PluginID))
	}
	if m.Name != "" {
		fmt.Fprintf(&b, "  <name>%s</name>\n", escape(m.Name))
	}
	fmt.Fprintf(&b, "  %s\n", versionElement(m.Version))
	if m.Group != "" {
		fmt.Fprintf(&b, "  <vendor>%s</vendor>\n", escape(m.Group))
	}
	fmt.Fprintf(&b, "  %s\n", ideaVersionElement(m.Compatibility))
	b.WriteString("  <depends>com.intellij.modules.platform</depends>\n")
	for _, id := range m.RequiredPlugins {
		fmt.Fprintf(&b, "  <depends>%s</depends>\n", escape(id))
	}
	b.WriteString(pluginRootClose + "\n")
	return b.Bytes()
}

// JarManifest renders META-INF/MANIFEST.MF for the packaged artifact
func (p *ManifestPatcher) JarManifest(m entities.Manifest, c entities.CompilerSettings) []byte {
	var b bytes.Buffer
	line := func(k, v string) {
		if v != "" {
			b.WriteString(k + ": " + v + "\r\n")
		}
	}
	line("Manifest-Version", "1.0")
	line("Created-By", "plugship")
	line("Implementation-Vendor-Id", m.Group)
	line("Implementation-Title", m.Name)
	line("Implementation-Version", m.Version)
	line("Build-Jdk-Spec", c.TargetCompatibility)
	line("Plugin-Since-Build", m.Compatibility.SinceBuild)
	line("Plugin-Until-Build", m.Compatibility.UntilBuild)
	b.WriteString("\r\n")
	return b.Bytes()
}

// Only markup outside comments and CDATA is patched
func replaceOrInsert(doc []byte, pattern *regexp.Regexp, element string) []byte {
	if loc := findInMarkup(doc, pattern); loc != nil {
		out := make([]byte, 0, len(doc)+len(element))
		out = append(out, doc[:loc[0]]...)
		out = append(out, element...)
		return append(out, doc[loc[1]:]...)
	}

	idx := rootCloseIndex(doc)
	insert := "  " + element + "\n"
	out := make([]byte, 0, len(doc)+len(insert))
	out = append(out, doc[:idx]...)
	out = append(out, insert...)
	return append(out, doc[idx:]...)
}

// markupSegments returns the [start, end) spans of doc outside comments and CDATA
func markupSegments(doc []byte) [][2]int {
	var segments [][2]int
	start := 0
	for _, loc := range opaquePattern.FindAllIndex(doc, -1) {
		segments = append(segments, [2]int{start, loc[0]})
		start = loc[1]
	}
	return append(segments, [2]int{start, len(doc)})
}

func findInMarkup(doc []byte, pattern *regexp.Regexp) []int {
	for _, seg := range markupSegments(doc) {
		if loc := pattern.FindIndex(doc[seg[0]:seg[1]]); loc != nil {
			return []int{seg[0] + loc[0], seg[0] + loc[1]}
		}
	}
	return nil
}

// rootCloseIndex returns the offset of the last </idea-plugin> outside
// comments and CDATA, or -1
func rootCloseIndex(doc []byte) int {
	idx := -1
	for _, seg := range markupSegments(doc) {
		if i := bytes.LastIndex(doc[seg[0]:seg[1]], []byte(pluginRootClose)); i >= 0 {
			idx = seg[0] + i
		}
	}
	return idx
}

func versionElement(version string) string {
	return "<version>" + escape(version) + "</version>"
}

// until-build is omitted when empty so the artifact stays open-ended
func ideaVersionElement(r entities.CompatibilityRange) string {
	s := `<idea-version since-build="` + escape(r.SinceBuild) + `"`
	if r.UntilBuild != "" {
		s += ` until-build="` + escape(r.UntilBuild) + `"`
	}
	return s + "/>"
}

func escape(s string) string {
	return xmlEscaper.Replace(s)
}
