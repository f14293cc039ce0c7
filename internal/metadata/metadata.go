// Package metadata derives technology tags, tool mentions, code-language
// tags, and has-code/has-error flags from normalized message content via a
// fixed, auditable pattern table. The table intentionally favors simple,
// deterministic regexes over anything locale- or model-dependent.
package metadata

import "regexp"

var technologyPatterns = map[string]*regexp.Regexp{
	// Programming languages
	"rust":       regexp.MustCompile(`(?i)\b(rust|cargo|rustc|rustup)\b`),
	"python":     regexp.MustCompile(`(?i)\b(python|pip|conda|virtualenv|pytest)\b`),
	"javascript": regexp.MustCompile(`(?i)\b(javascript|js|node\.js|npm|yarn|react|vue)\b`),
	"typescript": regexp.MustCompile(`(?i)\b(typescript|ts|tsc)\b`),
	"go":         regexp.MustCompile(`(?i)\b(golang|go\s+run|go\s+build|go\s+mod)\b`),
	"java":       regexp.MustCompile(`(?i)\b(java|gradle|maven|spring)\b`),
	"csharp":     regexp.MustCompile(`(?i)\b(c#|csharp|dotnet|nuget)\b`),
	"cpp":        regexp.MustCompile(`(?i)\b(c\+\+|cpp|cmake|clang\+\+|g\+\+)\b`),
	"c":          regexp.MustCompile(`(?i)\b(gcc|clang|make)\b`),

	// Frameworks and libraries
	"react":   regexp.MustCompile(`(?i)\b(react|jsx|useState|useEffect)\b`),
	"vue":     regexp.MustCompile(`(?i)\b(vue\.js|vuex|nuxt)\b`),
	"angular": regexp.MustCompile(`(?i)\b(angular|ng\s+|@angular)\b`),
	"django":  regexp.MustCompile(`(?i)\b(django|python.*web)\b`),
	"flask":   regexp.MustCompile(`(?i)\bflask\b`),
	"express": regexp.MustCompile(`(?i)\b(express\.js|express)\b`),

	// Databases
	"postgresql": regexp.MustCompile(`(?i)\b(postgres|postgresql|psql)\b`),
	"mysql":      regexp.MustCompile(`(?i)\b(mysql|mariadb)\b`),
	"sqlite":     regexp.MustCompile(`(?i)\bsqlite\b`),
	"mongodb":    regexp.MustCompile(`(?i)\b(mongodb|mongo|mongoose)\b`),
	"redis":      regexp.MustCompile(`(?i)\bredis\b`),

	// Infrastructure and DevOps
	"docker":     regexp.MustCompile(`(?i)\b(docker|dockerfile|container)\b`),
	"kubernetes": regexp.MustCompile(`(?i)\b(kubernetes|k8s|kubectl|helm)\b`),
	"aws":        regexp.MustCompile(`(?i)\b(aws|amazon.*web|ec2|s3|lambda)\b`),
	"gcp":        regexp.MustCompile(`(?i)\b(gcp|google.*cloud|gke)\b`),
	"azure":      regexp.MustCompile(`(?i)\b(azure|microsoft.*cloud)\b`),
	"terraform":  regexp.MustCompile(`(?i)\bterraform\b`),
	"ansible":    regexp.MustCompile(`(?i)\bansible\b`),

	// Version control and CI/CD
	"git":  regexp.MustCompile(`(?i)\b(git|github|gitlab|bitbucket)\b`),
	"cicd": regexp.MustCompile(`(?i)\b(jenkins|github.*actions|gitlab.*ci|circleci|travis)\b`),

	// Web technologies
	"html": regexp.MustCompile(`(?i)\b(html|html5)\b`),
	"css":  regexp.MustCompile(`(?i)\b(css|css3|sass|scss|less)\b`),
	"api":  regexp.MustCompile(`(?i)\b(api|rest|graphql|endpoint)\b`),

	// Search and data processing
	"elasticsearch": regexp.MustCompile(`(?i)\b(elasticsearch|elastic|kibana)\b`),
	"tantivy":       regexp.MustCompile(`(?i)\btantivy\b`),
	"lucene":        regexp.MustCompile(`(?i)\blucene\b`),
}

var toolPatterns = map[string]*regexp.Regexp{
	"bash":      regexp.MustCompile(`(?i)\b(bash|shell|terminal|command.*line)\b`),
	"grep":      regexp.MustCompile(`(?i)\b(grep|rg|ripgrep|search)\b`),
	"find":      regexp.MustCompile(`(?i)\b(find|locate|which)\b`),
	"curl":      regexp.MustCompile(`(?i)\b(curl|wget|http.*request)\b`),
	"ssh":       regexp.MustCompile(`(?i)\b(ssh|scp|rsync)\b`),
	"systemctl": regexp.MustCompile(`(?i)\b(systemctl|systemd|service)\b`),
	"vim":       regexp.MustCompile(`(?i)\b(vim|neovim|nvim|editor)\b`),
	"tmux":      regexp.MustCompile(`(?i)\b(tmux|screen|session)\b`),
}

var codeBlockPattern = regexp.MustCompile("```(\\w+)?\n")

var languagePatterns = map[string]*regexp.Regexp{
	"rust":       regexp.MustCompile("```rust\n"),
	"python":     regexp.MustCompile("```python\n"),
	"javascript": regexp.MustCompile("```(javascript|js)\n"),
	"typescript": regexp.MustCompile("```(typescript|ts)\n"),
	"bash":       regexp.MustCompile("```(bash|sh|shell)\n"),
	"json":       regexp.MustCompile("```json\n"),
	"yaml":       regexp.MustCompile("```(yaml|yml)\n"),
	"toml":       regexp.MustCompile("```toml\n"),
	"sql":        regexp.MustCompile("```sql\n"),
	"dockerfile": regexp.MustCompile("```dockerfile\n"),
	"html":       regexp.MustCompile("```html\n"),
	"css":        regexp.MustCompile("```css\n"),
	"xml":        regexp.MustCompile("```xml\n"),
}

var errorPattern = regexp.MustCompile(`(?i)\b(error|exception|failed|failure|panic|crash|bug|issue|problem|broken)\b`)

// ExtractTechnologies returns the deduplicated set of technology tags
// whose pattern matches content.
func ExtractTechnologies(content string) []string {
	return matchAll(technologyPatterns, content)
}

// ExtractToolsMentioned returns the deduplicated set of CLI-tool tags
// whose pattern matches content.
func ExtractToolsMentioned(content string) []string {
	return matchAll(toolPatterns, content)
}

// ExtractCodeLanguages returns the deduplicated set of languages whose
// fenced-code-block hint appears in content.
func ExtractCodeLanguages(content string) []string {
	return matchAll(languagePatterns, content)
}

// HasCodeBlocks reports whether content contains any fenced code block.
func HasCodeBlocks(content string) bool {
	return codeBlockPattern.MatchString(content)
}

// HasErrorMentions reports whether content contains any error-shaped
// word from the fixed pattern.
func HasErrorMentions(content string) bool {
	return errorPattern.MatchString(content)
}

// All runs every extractor over content in one pass.
func All(content string) (technologies, toolsMentioned, codeLanguages []string, hasCode, hasError bool) {
	return ExtractTechnologies(content), ExtractToolsMentioned(content), ExtractCodeLanguages(content),
		HasCodeBlocks(content), HasErrorMentions(content)
}

func matchAll(patterns map[string]*regexp.Regexp, content string) []string {
	var tags []string
	for tag, pattern := range patterns {
		if pattern.MatchString(content) {
			tags = append(tags, tag)
		}
	}
	return tags
}
