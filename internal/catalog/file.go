package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk catalog document format:
//
//	dialect: postgres
//	tables:
//	  - name: users
//	    rows: 5000
//	    columns:
//	      - {name: id, type: integer}
//	      - {name: email, type: varchar(255), nullable: true}
//	indexes:
//	  - {name: users_pkey, table: users, columns: [id], unique: true}
type File struct {
	Dialect string  `yaml:"dialect"`
	Tables  []Table `yaml:"tables"`
	Indexes []Index `yaml:"indexes"`
}

// Load parses a catalog document.
func Load(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for i, t := range f.Tables {
		if t.Name == "" {
			return nil, fmt.Errorf("parse catalog: table %d has no name", i)
		}
		if len(t.Columns) == 0 {
			return nil, fmt.Errorf("parse catalog: table %q has no columns", t.Name)
		}
	}
	return &f, nil
}

// LoadFile reads and parses a catalog document from disk.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Load(data)
}

// Memory builds the in-memory catalog view from the document.
func (f *File) Memory() *Memory {
	return NewMemory(f.Tables...)
}

// Stats builds the index metadata view from the document.
func (f *File) Stats() *Stats {
	return NewStats(f.Memory(), f.Indexes...)
}
