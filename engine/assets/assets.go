package assets

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/spaghettifunk/vortex/engine/assets/loaders"
	"github.com/spaghettifunk/vortex/engine/core"
)

type AssetInfo struct {
	Path       string
	Type       loaders.ResourceType
	LastLoaded time.Time
}

// AssetManager resolves assets against a search-path list, dispatches to the
// registered loaders and keeps an fsnotify watch on the asset roots so that
// changes to scene or shader files are visible in the log during iteration.
type AssetManager struct {
	searchPaths []string
	assets      map[string]AssetInfo
	loaders     map[loaders.ResourceType]loaders.Loader

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager(searchPaths []string) (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	am := &AssetManager{
		searchPaths: searchPaths,
		assets:      make(map[string]AssetInfo),
		loaders:     make(map[loaders.ResourceType]loaders.Loader),
		fsnotify:    fsWatch,
		done:        make(chan struct{}),
	}

	am.registerLoader(loaders.ResourceTypeMesh, &loaders.MeshLoader{})
	am.registerLoader(loaders.ResourceTypeShaderBinary, &loaders.BinaryLoader{})

	go am.start()
	for _, sp := range searchPaths {
		if _, err := os.Stat(sp); err == nil {
			if err := am.watchRecursive(sp); err != nil {
				core.LogWarn("failed to watch asset path '%s': %s", sp, err)
			}
		}
	}

	return am, nil
}

func (am *AssetManager) registerLoader(assetType loaders.ResourceType, loader loaders.Loader) {
	am.loaders[assetType] = loader
}

// FindFile resolves a relative asset name against the working directory and
// then the search paths, first hit wins. An absolute path that exists is
// returned as-is.
func (am *AssetManager) FindFile(name string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
		return "", core.ErrAssetNotFound
	}
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	for _, sp := range am.searchPaths {
		candidate := filepath.Join(sp, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", core.ErrAssetNotFound
}

// LoadAsset resolves and loads one asset with the loader registered for its
// type, registering it with a fresh resource ID.
func (am *AssetManager) LoadAsset(name string, resourceType loaders.ResourceType) (*loaders.Resource, error) {
	path, err := am.FindFile(name)
	if err != nil {
		core.LogError("asset '%s' not found in %v", name, am.searchPaths)
		return nil, err
	}

	loader, exists := am.loaders[resourceType]
	if !exists {
		return nil, core.ErrAssetNotFound
	}

	res, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	res.ID = uuid.New().String()

	am.mutex.Lock()
	am.assets[path] = AssetInfo{Path: path, Type: resourceType, LastLoaded: time.Now()}
	am.mutex.Unlock()

	core.LogDebug("Loaded asset '%s' as resource %s.", path, res.ID)
	return res, nil
}

// LoadMesh loads a wavefront OBJ scene containing exactly one shape.
func (am *AssetManager) LoadMesh(name string) (*loaders.MeshData, error) {
	res, err := am.LoadAsset(name, loaders.ResourceTypeMesh)
	if err != nil {
		return nil, err
	}
	return res.Data.(*loaders.MeshData), nil
}

// LoadShaderBinary loads a precompiled SPIR-V module as a word stream.
func (am *AssetManager) LoadShaderBinary(name string) ([]uint32, error) {
	res, err := am.LoadAsset(name, loaders.ResourceTypeShaderBinary)
	if err != nil {
		return nil, err
	}
	return res.Data.([]uint32), nil
}

func (am *AssetManager) Shutdown() {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if !am.isClosed {
		close(am.done)
		am.isClosed = true
	}
}

func (am *AssetManager) start() {
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					am.watchRecursive(e.Name)
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				core.LogDebug("asset changed on disk: %s", e.Name)
			}
			if e.Op&fsnotify.Remove != 0 {
				am.mutex.Lock()
				delete(am.assets, e.Name)
				am.mutex.Unlock()
			}

		case e, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(e.Error())

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if err := am.fsnotify.Add(walkPath); err != nil {
				return err
			}
		}
		return nil
	})
}
