package pipeline

import (
	"log"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/project-remapper/internal/jar"
)

const servicesDir = "META-INF/services/"

// Signature files no longer match once any entry changes.
var signatureFiles = glob.MustCompile("META-INF/*.{SF,RSA,DSA,EC,sf,rsa,dsa,ec}", '/')

// fixMetaInf brings META-INF in line with renamed and rewritten entries:
// service files and Main-Class follow class renames, manifest sections
// follow their entries, digests are recomputed and stale signatures dropped.
// It returns the names of dropped entries.
func fixMetaInf(results []*result, rename func(string) string) []string {
	byInput := make(map[string]*result, len(results))
	changed := false
	for _, r := range results {
		byInput[r.input.Name] = r
		changed = changed || r.changed()
	}
	if !changed {
		return nil
	}

	var dropped []string
	for _, r := range results {
		switch {
		case signatureFiles.Match(r.input.Name):
			r.drop = true
			dropped = append(dropped, r.input.Name)
			log.Printf("Warning: dropping signature file %s, entries were modified\n", r.input.Name)
		case strings.HasPrefix(r.input.Name, servicesDir) && !r.input.IsDir():
			fixService(r, rename)
		}
	}

	if m, ok := byInput[jar.ManifestName]; ok {
		fixManifest(m, byInput, rename)
	}
	return dropped
}

func dotted(internalName string) string {
	return strings.ReplaceAll(internalName, "/", ".")
}

func internal(binaryName string) string {
	return strings.ReplaceAll(binaryName, ".", "/")
}

// fixService renames a provider-configuration file after its service type
// and rewrites the provider class names it lists.
func fixService(r *result, rename func(string) string) {
	service := strings.TrimPrefix(r.name, servicesDir)
	r.name = servicesDir + dotted(rename(internal(service)))

	lines := strings.Split(string(r.data), "\n")
	for i, line := range lines {
		body, comment, hasComment := strings.Cut(line, "#")
		provider := strings.TrimSpace(body)
		if provider == "" {
			continue
		}
		mapped := dotted(rename(internal(provider)))
		if mapped == provider {
			continue
		}
		lines[i] = strings.Replace(body, provider, mapped, 1)
		if hasComment {
			lines[i] += "#" + comment
		}
	}
	if joined := strings.Join(lines, "\n"); joined != string(r.data) {
		r.data = []byte(joined)
		r.modified = true
	}
}

func fixManifest(r *result, byInput map[string]*result, rename func(string) string) {
	m, err := jar.ParseManifest(r.data)
	if err != nil {
		log.Printf("Warning: leaving unparsable manifest untouched: %v\n", err)
		return
	}

	modified := false
	if mainClass, ok := m.MainClass(); ok {
		if mapped := rename(mainClass); mapped != mainClass {
			m.Main.Set("Main-Class", dotted(mapped))
			modified = true
		}
	}

	for _, s := range m.Sections {
		entry, ok := byInput[s.Name()]
		if !ok || !entry.changed() {
			continue
		}
		if entry.name != entry.input.Name {
			s.Set("Name", entry.name)
		}
		for i, a := range s.Attributes {
			if !strings.HasSuffix(strings.ToLower(a.Key), "-digest") {
				continue
			}
			if digest, ok := jar.Digest(a.Key[:len(a.Key)-len("-digest")], entry.data); ok {
				s.Attributes[i].Value = digest
			}
		}
		modified = true
	}

	if modified {
		r.data = m.Bytes()
		r.modified = true
	}
}
