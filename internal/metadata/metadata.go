// Package metadata reads mod metadata files shipped inside a jar to find the
// mapping namespace the jar was built against.
package metadata

import (
	"fmt"

	"github.com/buger/jsonparser"

	"github.com/mvp-joe/project-remapper/internal/jar"
)

const (
	QuiltMetadata  = "quilt.mod.json"
	FabricMetadata = "fabric.mod.json"

	// DefaultQuiltVia applies to quilt mods that do not name their
	// intermediate mappings.
	DefaultQuiltVia = "org.quiltmc:hashed"
	FabricVia       = "net.fabricmc:intermediary"
)

// ViaCoordinate returns the via mapping coordinate (group:artifact) a mod
// jar declares, or "" when the jar carries no mod metadata.
func ViaCoordinate(jarPath string) (string, error) {
	f, err := jar.Open(jarPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return ViaCoordinateOf(f)
}

// ViaCoordinateOf is ViaCoordinate for an already open jar.
func ViaCoordinateOf(f *jar.File) (string, error) {
	if f.Has(QuiltMetadata) {
		data, err := f.Read(QuiltMetadata)
		if err != nil {
			return "", err
		}
		return quiltVia(data)
	}
	if f.Has(FabricMetadata) {
		return FabricVia, nil
	}
	return "", nil
}

func quiltVia(data []byte) (string, error) {
	if _, _, _, err := jsonparser.Get(data, "quilt_loader"); err != nil {
		return "", fmt.Errorf("invalid %s: %w", QuiltMetadata, err)
	}
	via, err := jsonparser.GetString(data, "quilt_loader", "intermediate_mappings")
	if err != nil {
		// Missing or not a string.
		return DefaultQuiltVia, nil
	}
	return via, nil
}
