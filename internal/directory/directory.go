// Package directory is the single lookup table of assignees and their chat
// mention ids.
package directory

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gandash/dash/internal/models"
)

type Directory struct {
	people map[int]models.Person
}

func New(people ...models.Person) *Directory {
	d := &Directory{people: make(map[int]models.Person, len(people))}
	for _, p := range people {
		d.people[p.ID] = p
	}
	return d
}

// Parse reads "id:name:discordID" entries separated by commas.
func Parse(spec string) (*Directory, error) {
	var people []models.Person
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid person entry %q: want id:name:discordID", entry)
		}
		id, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid person id in %q: %w", entry, err)
		}
		people = append(people, models.Person{
			ID:        id,
			Name:      strings.TrimSpace(parts[1]),
			DiscordID: strings.TrimSpace(parts[2]),
		})
	}
	return New(people...), nil
}

func (d *Directory) Lookup(id int) (models.Person, bool) {
	p, ok := d.people[id]
	return p, ok
}

// Assignee resolves an optional assignee id.
func (d *Directory) Assignee(id *int) (models.Person, bool) {
	if id == nil {
		return models.Person{}, false
	}
	return d.Lookup(*id)
}

// All returns everyone ordered by id.
func (d *Directory) All() []models.Person {
	out := make([]models.Person, 0, len(d.people))
	for _, p := range d.people {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
