package trackmate

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/amanda-brooke/trackmate7-pipeline/internal/fsutil"
)

// OffsetFolder is one discovered replicate folder (offset_<hours>).
type OffsetFolder struct {
	Path        string
	Name        string
	OffsetHours float64
}

// offsetPrefix is the replicate folder naming convention.
const offsetPrefix = "offset_"

// DiscoverOffsets finds offset_* replicate folders under basePath, sorted by
// name. The folder suffix is the time offset in hours.
func DiscoverOffsets(fsys fsutil.FileSystem, basePath string) ([]OffsetFolder, error) {
	entries, err := fsys.ReadDir(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read base path %s: %w", basePath, err)
	}

	var offsets []OffsetFolder
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), offsetPrefix) {
			continue
		}
		suffix := strings.TrimPrefix(entry.Name(), offsetPrefix)
		hours, err := strconv.ParseFloat(suffix, 64)
		if err != nil {
			return nil, fmt.Errorf("offset folder %s has non-numeric suffix %q", entry.Name(), suffix)
		}
		offsets = append(offsets, OffsetFolder{
			Path:        filepath.Join(basePath, entry.Name()),
			Name:        entry.Name(),
			OffsetHours: hours,
		})
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i].Name < offsets[j].Name })
	return offsets, nil
}

// DiscoverGroupFolders finds group subfolders (treatment, control, ...) of one
// offset folder and the data-type folders each one holds. Wildtype layouts
// keep data-type folders directly under the offset folder and are not
// discovered here.
func DiscoverGroupFolders(fsys fsutil.FileSystem, offset OffsetFolder) (map[Group]map[DataType]string, error) {
	entries, err := fsys.ReadDir(offset.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read offset folder %s: %w", offset.Path, err)
	}

	groups := make(map[Group]map[DataType]string)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		group := Group(capitalize(entry.Name()))
		folders := make(map[DataType]string)
		for _, dt := range DataTypes {
			dtFolder := filepath.Join(offset.Path, entry.Name(), string(dt))
			if fsys.Exists(dtFolder) {
				folders[dt] = dtFolder
			}
		}
		if len(folders) > 0 {
			groups[group] = folders
		}
	}
	return groups, nil
}

// WildtypeFolder returns the data-type folder for a wildtype layout
// (offset_N/<datatype>), or an error when it does not exist.
func WildtypeFolder(fsys fsutil.FileSystem, offset OffsetFolder, dataType DataType) (string, error) {
	folder := filepath.Join(offset.Path, string(dataType))
	if !fsys.Exists(folder) {
		return "", fmt.Errorf("folder %s does not exist", folder)
	}
	return folder, nil
}

// ReplicateID builds the replicate identity baked into File_IDs. Wildtype
// replicates are identified by the offset folder alone; grouped replicates by
// offset folder plus group folder.
func ReplicateID(offset OffsetFolder, group Group) string {
	if group == GroupWildtype {
		return offset.Name
	}
	return offset.Name + "_" + strings.ToLower(string(group))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
