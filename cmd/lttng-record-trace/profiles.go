package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/TheMatthew/lttng-utils/profile"
)

// listProfiles prints every profile found on the search path.
func listProfiles(store *profile.Store) error {
	profiles := store.List()
	if len(profiles) == 0 {
		fmt.Println("No profiles found in:", store.Paths)

		return nil
	}

	names := slices.Sorted(maps.Keys(profiles))

	width := 0
	for _, name := range names {
		width = max(width, len(name))
	}

	for _, name := range names {
		p := profiles[name]
		fmt.Printf("%-*s  %s (%s)\n", width, name, p.Desc, p.Source)
	}

	return nil
}

// showProfile prints one profile with its includes resolved.
func showProfile(store *profile.Store, name string) error {
	p, err := store.Load(name)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling profile %s: %w", name, err)
	}

	fmt.Printf("# %s (%s)\n%s", p.Name, p.Source, out)

	return nil
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for profile files",
		Long: `schema prints a JSON Schema (Draft 7) describing the profile file format,
for editor validation of .profile files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := json.MarshalIndent(profile.Schema(), "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling schema: %w", err)
			}

			out = append(out, '\n')

			_, err = cmd.OutOrStdout().Write(out)
			if err != nil {
				return fmt.Errorf("writing schema: %w", err)
			}

			return nil
		},
	}
}
