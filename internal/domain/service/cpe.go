package service

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	parenthesesPattern   = regexp.MustCompile(`\s*\(.*?\)\s*`)
	versionTokenPattern  = regexp.MustCompile(`(\d+(\.\d+)*([a-zA-Z]\d+)?(?:[_\-.]\d+)*)`)
	numericDottedPattern = regexp.MustCompile(`\d+(\.\d+)*`)
	versionSplitPattern  = regexp.MustCompile(`[\s\-]`)
)

// Vendor table keyed by the normalized service name. Unknown services
// reuse the normalized name as vendor.
var cpeVendorMap = map[string]string{
	"openssh":                      "openbsd",
	"ssh":                          "openbsd",
	"apache_httpd":                 "apache",
	"nginx":                        "nginx",
	"mysql":                        "mysql",
	"postgresql":                   "postgresql",
	"bind":                         "isc",
	"microsoft_terminal_services":  "microsoft",
	"ms_wbt_server":                "microsoft",
}

// BuildCPE constructs a CPE 2.3 identifier from a detected service name
// and version banner. Generic mode truncates the version to its first two
// numeric dotted components (7.6p1 becomes 7.6), widening the match for a
// fallback query. The second return is false when no usable version could
// be extracted.
func BuildCPE(serviceName, version string, generic bool) (string, bool) {
	if serviceName == "" || version == "" {
		return "", false
	}

	normalizedVersion := normalizeVersion(version)
	if normalizedVersion == "" {
		return "", false
	}

	if generic {
		if numeric := numericDottedPattern.FindString(normalizedVersion); numeric != "" {
			parts := strings.Split(numeric, ".")
			if len(parts) > 2 {
				parts = parts[:2]
			}
			normalizedVersion = strings.Join(parts, ".")
		}
	}

	normalizedService := normalizeServiceName(serviceName)

	vendor, ok := cpeVendorMap[normalizedService]
	if !ok {
		vendor = normalizedService
	}

	product := normalizedService
	switch normalizedService {
	case "apache_httpd":
		product = "http_server"
	case "openssh", "ssh":
		product = "openssh"
	case "ms_wbt_server":
		product = "windows_server"
	}

	return fmt.Sprintf("cpe:2.3:a:%s:%s:%s:*:*:*:*:*:*:*", vendor, product, normalizedVersion), true
}

// normalizeVersion trims a raw version banner down to the version token.
// "7.6p1 Ubuntu 4 (Ubuntu Linux; protocol 2.0)" becomes "7.6p1".
func normalizeVersion(version string) string {
	cleaned := strings.TrimSpace(parenthesesPattern.ReplaceAllString(version, ""))

	if m := versionTokenPattern.FindString(cleaned); m != "" {
		return versionSplitPattern.Split(m, 2)[0]
	}

	// No structured version token; settle for the first numeric-dotted run.
	return numericDottedPattern.FindString(cleaned)
}

func normalizeServiceName(serviceName string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "_", "-", "_")
	return replacer.Replace(strings.ToLower(serviceName))
}
