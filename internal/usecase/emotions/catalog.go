package emotions

import (
	"fmt"
	"strings"

	"reflexion-api/internal/domain"
)

// Catalog хранит разрешённый список эмоций, собирается один раз из конфигурации.
type Catalog struct {
	names []string
	set   map[string]struct{}
}

// NewCatalog нормализует список: обрезает пробелы, приводит к нижнему регистру,
// убирает пустые значения и дубликаты, сохраняя порядок.
func NewCatalog(names []string) Catalog {
	c := Catalog{set: make(map[string]struct{}, len(names))}
	for _, name := range names {
		key := Normalize(name)
		if key == "" {
			continue
		}
		if _, ok := c.set[key]; ok {
			continue
		}
		c.set[key] = struct{}{}
		c.names = append(c.names, key)
	}
	return c
}

// Normalize приводит название эмоции к каноничному виду.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Names возвращает копию списка эмоций.
func (c Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Contains проверяет эмоцию без учёта регистра.
func (c Catalog) Contains(name string) bool {
	_, ok := c.set[Normalize(name)]
	return ok
}

// Validate проверяет, что все эмоции из списка разрешены, и возвращает их в каноничном виде.
func (c Catalog) Validate(emotions []string) ([]string, error) {
	out := make([]string, 0, len(emotions))
	for _, e := range emotions {
		if !c.Contains(e) {
			return nil, fmt.Errorf("%w: emotion %q is not allowed", domain.ErrInvalidInput, e)
		}
		out = append(out, Normalize(e))
	}
	return out, nil
}
