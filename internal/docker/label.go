package docker

import (
	"strings"
	"time"
)

// Label keys applied to every installer container. They make containers
// left behind by an interrupted run identifiable with
// `docker ps -a --filter label=modcommit.managed-by=modcommit`.
const (
	// LabelPrefix is the common prefix for all modcommit labels.
	LabelPrefix = "modcommit."

	// LabelManagedBy identifies containers created by modcommit.
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelModules lists the requested modules, comma separated.
	LabelModules = LabelPrefix + "modules"

	// LabelCreatedAt stores the RFC3339 creation time in UTC.
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the constant value for the LabelManagedBy label.
const ManagedByValue = "modcommit"

// BuildLabels returns the label set for an installer container that
// installs modules.
func BuildLabels(modules []string, createdAt time.Time) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelModules:   strings.Join(modules, ","),
		LabelCreatedAt: createdAt.UTC().Format(time.RFC3339),
	}
}

// isManaged reports whether a label set marks a container as created by modcommit.
func isManaged(labels map[string]string) bool {
	return labels[LabelManagedBy] == ManagedByValue
}
