package data

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

//go:embed data-files
var dataFilesRoot embed.FS

const (
	dataBasePath  = "data-files"
	fixturesPath  = "fixtures"
	routeTableDir = "routes"
)

// SourceInfo represents JSON or YAML data that was read from a file, after post-processing to expand
// constants and parameters. For non-parameterized files, you will get one SourceInfo per file. For
// parameterized files, there can be many instances per file, each with its own version of Data.
type SourceInfo struct {
	FilePath string
	BaseName string
	Params   map[string]ldvalue.Value
	Data     []byte
}

func (s SourceInfo) ParseInto(target interface{}) error {
	if err := ParseJSONOrYAML(s.Data, target); err != nil {
		return fmt.Errorf("error parsing %q %s: %w", s.BaseName, s.ParamsString(), err)
	}
	return nil
}

// ParamsString describes the parameter values, in name order, for use in test names.
func (s SourceInfo) ParamsString() string {
	if len(s.Params) == 0 {
		return ""
	}
	names := maps.Keys(s.Params)
	slices.Sort(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		value := s.Params[name]
		text := value.JSONString()
		if value.IsString() {
			text = value.StringValue()
		}
		parts = append(parts, name+"="+text)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// LoadDataFile reads a data file and performs any necessary constant/parameter substitutions. It can
// return more than one SourceInfo because any file can be parameterized.
//
// The path parameter is relative to data/data-files.
func LoadDataFile(filePath string) ([]SourceInfo, error) {
	data, err := dataFilesRoot.ReadFile(dataBasePath + "/" + filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", filePath, err)
	}
	sources, err := expandSubstitutions(data)
	if err != nil {
		return nil, fmt.Errorf("error reading %q: %w", filePath, err)
	}
	ret := make([]SourceInfo, 0, len(sources))
	for _, source := range sources {
		source.FilePath = filePath
		source.BaseName = path.Base(filePath)
		ret = append(ret, source)
	}
	return ret, nil
}

// LoadAllDataFiles reads all data files in a directory, in name order. It can return more than one
// SourceInfo per file.
//
// The path parameter is relative to data/data-files.
func LoadAllDataFiles(dirPath string) ([]SourceInfo, error) {
	files, err := dataFilesRoot.ReadDir(dataBasePath + "/" + dirPath)
	if err != nil {
		return nil, err
	}
	var ret []SourceInfo
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		sources, err := LoadDataFile(dirPath + "/" + file.Name())
		if err != nil {
			return nil, err
		}
		ret = append(ret, sources...)
	}
	return ret, nil
}

// FixtureFiles returns the static files that route tables can serve with a "file" entry: pages,
// scripts, and fonts.
func FixtureFiles() fs.FS {
	sub, err := fs.Sub(dataFilesRoot, dataBasePath+"/"+fixturesPath)
	if err != nil {
		panic(err) // can only happen if the embed directive above is wrong
	}
	return sub
}
