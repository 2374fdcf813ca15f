package registry

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// MigrationFunc upgrades a Record in place from one schema version to the next.
type MigrationFunc func(*Record) error

// Migration is one step in the schema migration chain.
type Migration struct {
	FromVersion string
	ToVersion   string
	Name        string
	Migrate     MigrationFunc
}

var registeredMigrations []Migration

func init() {
	registeredMigrations = []Migration{}

	for _, m := range registeredMigrations {
		if _, err := semver.NewVersion(m.FromVersion); err != nil {
			panic(fmt.Sprintf("registry: invalid FromVersion %q in migration %q: %v", m.FromVersion, m.Name, err))
		}
		if _, err := semver.NewVersion(m.ToVersion); err != nil {
			panic(fmt.Sprintf("registry: invalid ToVersion %q in migration %q: %v", m.ToVersion, m.Name, err))
		}
	}
	for i := 1; i < len(registeredMigrations); i++ {
		if registeredMigrations[i-1].ToVersion != registeredMigrations[i].FromVersion {
			panic(fmt.Sprintf("registry: migration gap: %q ends at %s but %q starts at %s",
				registeredMigrations[i-1].Name, registeredMigrations[i-1].ToVersion,
				registeredMigrations[i].Name, registeredMigrations[i].FromVersion))
		}
	}
}

// MigrateToLatest applies every registered migration whose FromVersion
// matches the record's current schema_version, walking the chain to
// SchemaVersion. A record already at SchemaVersion is returned unchanged.
func MigrateToLatest(r *Record) error {
	for r.SchemaVersion != SchemaVersion {
		var next *Migration
		for i := range registeredMigrations {
			if registeredMigrations[i].FromVersion == r.SchemaVersion {
				next = &registeredMigrations[i]
				break
			}
		}
		if next == nil {
			return fmt.Errorf("registry: no migration path from schema %q to %q", r.SchemaVersion, SchemaVersion)
		}
		if err := next.Migrate(r); err != nil {
			return fmt.Errorf("registry: migration %q failed: %w", next.Name, err)
		}
		r.SchemaVersion = next.ToVersion
	}
	return nil
}

// CompareVersions compares two strategy-definition semver strings, -1/0/1.
func CompareVersions(a, b string) (int, error) {
	va, err := semver.NewVersion(a)
	if err != nil {
		return 0, fmt.Errorf("registry: invalid version %q: %w", a, err)
	}
	vb, err := semver.NewVersion(b)
	if err != nil {
		return 0, fmt.Errorf("registry: invalid version %q: %w", b, err)
	}
	return va.Compare(vb), nil
}
