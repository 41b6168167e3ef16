package depgraph

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

type ModuleID uint32

type ModuleIndex struct {
	NameToID map[string]ModuleID
	IDToName []string
}

// собрать уникальные ключи модулей, отсортировать, раздать ID по порядку
func BuildIndex(keys []string) ModuleIndex {
	paths := slices.Clone(keys)
	slices.Sort(paths)
	paths = slices.Compact(paths)

	nameToID := make(map[string]ModuleID, len(paths))
	for i, path := range paths {
		id, err := safecast.Conv[ModuleID](i)
		if err != nil {
			panic(fmt.Errorf("module id overflow: %w", err))
		}
		nameToID[path] = id
	}
	return ModuleIndex{NameToID: nameToID, IDToName: paths}
}

func (idx ModuleIndex) Name(id ModuleID) string {
	return idx.IDToName[int(id)]
}

func (idx ModuleIndex) Len() int { return len(idx.IDToName) }
