// Package quotes keeps each group's collection of quote screenshots.
//
// A group has an ordered list of members, an alias table mapping
// nicknames to members, and an index mapping 6-character short IDs to
// image files. The three tables are records in a [store.Store]; the images
// themselves live on disk under
//
//	<dir>/<group>/images/<member>/<uuid>.<ext>
//
// Uploading a quote for an unknown name registers that name as a member.
package quotes

import (
	"bytes"
	"context"
	"image"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	// Quote image formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/yiyinbot/yiyin/pkg/errors"
	"github.com/yiyinbot/yiyin/pkg/store"
)

// IDLength is the length of a quote's short ID.
const IDLength = 6

const idAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Quote is one indexed quote image.
type Quote struct {
	ID       string `json:"-"`
	Member   string `json:"member"`
	Filename string `json:"filename"`
}

// Member is a registered member with its aliases and quote count.
type Member struct {
	Name    string
	Aliases []string
	Count   int
}

// Book stores quotes for every group.
type Book struct {
	store store.Store
	dir   string
}

// New returns a Book keeping records in s and images under dir.
func New(s store.Store, dir string) *Book {
	return &Book{store: s, dir: dir}
}

// Dir returns the image root.
func (b *Book) Dir() string { return b.dir }

func membersKey(group string) string { return "quotes/" + group + "/members" }
func aliasesKey(group string) string { return "quotes/" + group + "/aliases" }
func indexKey(group string) string   { return "quotes/" + group + "/index" }

func (b *Book) memberDir(group, member string) string {
	return filepath.Join(b.dir, group, "images", member)
}

// Path returns the image path of q in group.
func (b *Book) Path(group string, q Quote) string {
	return filepath.Join(b.memberDir(group, q.Member), q.Filename)
}

// ValidateName checks that name can be used as a member name or alias.
// Names become directory names, so path separators and dot names are
// rejected.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New(errors.ErrCodeInvalidName, "请输入群友昵称")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return errors.New(errors.ErrCodeInvalidName, "昵称「%s」包含不支持的字符", name)
	}
	return nil
}

func validateGroup(group string) error {
	if group == "" || strings.ContainsAny(group, "/\\.") {
		return errors.New(errors.ErrCodeInvalidGroup, "invalid group %q", group)
	}
	return nil
}

type tables struct {
	members []string
	aliases map[string]string
}

func (b *Book) load(ctx context.Context, group string) (tables, error) {
	var t tables
	if _, err := b.store.Get(ctx, membersKey(group), &t.members); err != nil {
		return t, err
	}
	if _, err := b.store.Get(ctx, aliasesKey(group), &t.aliases); err != nil {
		return t, err
	}
	return t, nil
}

func (t tables) resolve(name string) (string, bool) {
	if slices.Contains(t.members, name) {
		return name, true
	}
	if canonical, ok := t.aliases[name]; ok && slices.Contains(t.members, canonical) {
		return canonical, true
	}
	return "", false
}

// Resolve maps a member name or alias to the canonical member name.
func (b *Book) Resolve(ctx context.Context, group, name string) (string, bool, error) {
	if err := validateGroup(group); err != nil {
		return "", false, err
	}
	t, err := b.load(ctx, group)
	if err != nil {
		return "", false, err
	}
	canonical, ok := t.resolve(strings.TrimSpace(name))
	return canonical, ok, nil
}

// AddMember registers name. It fails if name is already a member or an
// alias.
func (b *Book) AddMember(ctx context.Context, group, name string) error {
	name = strings.TrimSpace(name)
	if err := validateGroup(group); err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return err
	}

	var aliases map[string]string
	if _, err := b.store.Get(ctx, aliasesKey(group), &aliases); err != nil {
		return err
	}
	if owner, ok := aliases[name]; ok {
		return errors.New(errors.ErrCodeAlreadyExists, "「%s」已被用作群友「%s」的别名，不能再作为主昵称", name, owner)
	}

	var members []string
	return b.store.Update(ctx, membersKey(group), &members, func(bool) error {
		if slices.Contains(members, name) {
			return errors.New(errors.ErrCodeAlreadyExists, "群友「%s」已存在，无需重复添加", name)
		}
		members = append(members, name)
		return nil
	})
}

// AddAlias makes alias refer to the member that existing resolves to and
// returns that member's canonical name.
func (b *Book) AddAlias(ctx context.Context, group, existing, alias string) (string, error) {
	existing, alias = strings.TrimSpace(existing), strings.TrimSpace(alias)
	if err := validateGroup(group); err != nil {
		return "", err
	}
	if err := ValidateName(alias); err != nil {
		return "", err
	}

	t, err := b.load(ctx, group)
	if err != nil {
		return "", err
	}
	canonical, ok := t.resolve(existing)
	if !ok {
		return "", errors.New(errors.ErrCodeMemberMissing, "群友「%s」不存在，请先使用 /新增群友 %s 添加", existing, existing)
	}
	if slices.Contains(t.members, alias) {
		return "", errors.New(errors.ErrCodeAlreadyExists, "「%s」已是一个群友的主昵称，不能用作别名", alias)
	}

	var aliases map[string]string
	err = b.store.Update(ctx, aliasesKey(group), &aliases, func(bool) error {
		if owner, ok := aliases[alias]; ok {
			return errors.New(errors.ErrCodeAlreadyExists, "「%s」已是群友「%s」的别名", alias, owner)
		}
		if aliases == nil {
			aliases = map[string]string{}
		}
		aliases[alias] = canonical
		return nil
	})
	return canonical, err
}

// Members lists the group's members in registration order with their
// aliases (sorted) and indexed quote counts.
func (b *Book) Members(ctx context.Context, group string) ([]Member, error) {
	if err := validateGroup(group); err != nil {
		return nil, err
	}
	t, err := b.load(ctx, group)
	if err != nil {
		return nil, err
	}
	index, err := b.index(ctx, group)
	if err != nil {
		return nil, err
	}

	byMember := map[string][]string{}
	for alias, canonical := range t.aliases {
		byMember[canonical] = append(byMember[canonical], alias)
	}
	counts := map[string]int{}
	for _, q := range index {
		counts[q.Member]++
	}

	out := make([]Member, len(t.members))
	for i, name := range t.members {
		aliases := byMember[name]
		sort.Strings(aliases)
		out[i] = Member{Name: name, Aliases: aliases, Count: counts[name]}
	}
	return out, nil
}

// ensureMember resolves name, registering it when unknown. It reports
// whether the name was registered by this call.
func (b *Book) ensureMember(ctx context.Context, group, name string) (string, bool, error) {
	t, err := b.load(ctx, group)
	if err != nil {
		return "", false, err
	}
	if canonical, ok := t.resolve(name); ok {
		return canonical, false, nil
	}
	if err := ValidateName(name); err != nil {
		return "", false, err
	}

	registered := false
	var members []string
	err = b.store.Update(ctx, membersKey(group), &members, func(bool) error {
		registered = false
		if slices.Contains(members, name) {
			return store.ErrNoChange
		}
		members = append(members, name)
		registered = true
		return nil
	})
	return name, registered, err
}

// AddQuote stores data as a quote of the member name resolves to. Unknown
// names are registered first; registered reports whether that happened.
// data must decode as an image.
func (b *Book) AddQuote(ctx context.Context, group, name string, data []byte) (q Quote, registered bool, err error) {
	name = strings.TrimSpace(name)
	if err := validateGroup(group); err != nil {
		return Quote{}, false, err
	}
	if err := ValidateName(name); err != nil {
		return Quote{}, false, err
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Quote{}, false, errors.Wrap(errors.ErrCodeDecode, err, "无法识别的图片格式")
	}

	canonical, registered, err := b.ensureMember(ctx, group, name)
	if err != nil {
		return Quote{}, false, err
	}

	q = Quote{Member: canonical, Filename: uuid.NewString() + "." + extension(format)}
	dir := b.memberDir(group, canonical)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Quote{}, registered, errors.Wrap(errors.ErrCodeInternal, err, "cannot create %s", dir)
	}
	if err := os.WriteFile(filepath.Join(dir, q.Filename), data, 0o644); err != nil {
		return Quote{}, registered, errors.Wrap(errors.ErrCodeInternal, err, "cannot save quote")
	}

	id, err := b.addToIndex(ctx, group, q)
	if err != nil {
		os.Remove(filepath.Join(dir, q.Filename))
		return Quote{}, registered, err
	}
	q.ID = id
	return q, registered, nil
}

func extension(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}

func (b *Book) addToIndex(ctx context.Context, group string, q Quote) (string, error) {
	var (
		index map[string]Quote
		id    string
	)
	err := b.store.Update(ctx, indexKey(group), &index, func(bool) error {
		if index == nil {
			index = map[string]Quote{}
		}
		id = newID(index)
		index[id] = Quote{Member: q.Member, Filename: q.Filename}
		return nil
	})
	return id, err
}

// newID returns a short ID not present in index.
func newID(index map[string]Quote) string {
	buf := make([]byte, IDLength)
	for {
		for i := range buf {
			buf[i] = idAlphabet[rand.IntN(len(idAlphabet))]
		}
		if _, taken := index[string(buf)]; !taken {
			return string(buf)
		}
	}
}

func (b *Book) index(ctx context.Context, group string) (map[string]Quote, error) {
	var index map[string]Quote
	if _, err := b.store.Get(ctx, indexKey(group), &index); err != nil {
		return nil, err
	}
	for id, q := range index {
		q.ID = id
		index[id] = q
	}
	return index, nil
}

// List returns every indexed quote of the group ordered by member and ID.
func (b *Book) List(ctx context.Context, group string) ([]Quote, error) {
	if err := validateGroup(group); err != nil {
		return nil, err
	}
	index, err := b.index(ctx, group)
	if err != nil {
		return nil, err
	}
	out := make([]Quote, 0, len(index))
	for _, q := range index {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Member != out[j].Member {
			return out[i].Member < out[j].Member
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Get returns the quote with id and its image bytes.
func (b *Book) Get(ctx context.Context, group, id string) (Quote, []byte, error) {
	if err := validateGroup(group); err != nil {
		return Quote{}, nil, err
	}
	index, err := b.index(ctx, group)
	if err != nil {
		return Quote{}, nil, err
	}
	q, ok := index[id]
	if !ok {
		return Quote{}, nil, errors.New(errors.ErrCodeQuoteMissing, "语录ID「%s」不存在，请检查后重试", id)
	}
	data, err := os.ReadFile(b.Path(group, q))
	if err != nil {
		return q, nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "语录图片「%s」已丢失", id)
	}
	return q, data, nil
}

// Random returns a random quote of the member name resolves to.
func (b *Book) Random(ctx context.Context, group, name string) (Quote, []byte, error) {
	name = strings.TrimSpace(name)
	canonical, ok, err := b.Resolve(ctx, group, name)
	if err != nil {
		return Quote{}, nil, err
	}
	if !ok {
		return Quote{}, nil, errors.New(errors.ErrCodeMemberMissing, "群友「%s」不存在，请先使用 /新增群友 %s 添加", name, name)
	}
	index, err := b.index(ctx, group)
	if err != nil {
		return Quote{}, nil, err
	}
	var candidates []Quote
	for _, q := range index {
		if q.Member == canonical {
			candidates = append(candidates, q)
		}
	}
	q, data, found := b.pick(group, candidates)
	if !found {
		return Quote{}, nil, errors.New(errors.ErrCodeQuoteMissing, "群友「%s」还没有语录记录，使用 /上传 %s [图片] 来添加吧", canonical, canonical)
	}
	return q, data, nil
}

// RandomAny returns a random quote from any member of the group.
func (b *Book) RandomAny(ctx context.Context, group string) (Quote, []byte, error) {
	if err := validateGroup(group); err != nil {
		return Quote{}, nil, err
	}
	var members []string
	if _, err := b.store.Get(ctx, membersKey(group), &members); err != nil {
		return Quote{}, nil, err
	}
	if len(members) == 0 {
		return Quote{}, nil, errors.New(errors.ErrCodeMemberMissing, "本群还没有记录任何群友，使用 /新增群友 <昵称> 来添加吧")
	}
	index, err := b.index(ctx, group)
	if err != nil {
		return Quote{}, nil, err
	}
	candidates := make([]Quote, 0, len(index))
	for _, q := range index {
		if slices.Contains(members, q.Member) {
			candidates = append(candidates, q)
		}
	}
	q, data, found := b.pick(group, candidates)
	if !found {
		return Quote{}, nil, errors.New(errors.ErrCodeQuoteMissing, "本群还没有任何语录记录，使用 /上传 <昵称> [图片] 来添加吧")
	}
	return q, data, nil
}

// pick reads a random candidate, skipping quotes whose file is gone.
func (b *Book) pick(group string, candidates []Quote) (Quote, []byte, bool) {
	for len(candidates) > 0 {
		i := rand.IntN(len(candidates))
		q := candidates[i]
		data, err := os.ReadFile(b.Path(group, q))
		if err == nil {
			return q, data, true
		}
		candidates[i] = candidates[len(candidates)-1]
		candidates = candidates[:len(candidates)-1]
	}
	return Quote{}, nil, false
}

// Delete removes the quote with id from the index and deletes its image.
func (b *Book) Delete(ctx context.Context, group, id string) (Quote, error) {
	id = strings.TrimSpace(id)
	if err := validateGroup(group); err != nil {
		return Quote{}, err
	}
	var (
		index   map[string]Quote
		removed Quote
	)
	err := b.store.Update(ctx, indexKey(group), &index, func(bool) error {
		q, ok := index[id]
		if !ok {
			return errors.New(errors.ErrCodeQuoteMissing, "语录ID「%s」不存在，请检查后重试", id)
		}
		removed = q
		removed.ID = id
		delete(index, id)
		return nil
	})
	if err != nil {
		return Quote{}, err
	}
	if err := os.Remove(b.Path(group, removed)); err != nil && !os.IsNotExist(err) {
		return removed, errors.Wrap(errors.ErrCodeInternal, err, "cannot delete quote image")
	}
	return removed, nil
}

// Reindex gives an ID to every image on disk that the index does not know
// about and drops index entries whose file no longer exists.
func (b *Book) Reindex(ctx context.Context, group string) (added, removed int, err error) {
	if err := validateGroup(group); err != nil {
		return 0, 0, err
	}
	onDisk, err := b.scan(group)
	if err != nil {
		return 0, 0, err
	}

	var index map[string]Quote
	err = b.store.Update(ctx, indexKey(group), &index, func(bool) error {
		added, removed = 0, 0
		if index == nil {
			index = map[string]Quote{}
		}
		known := make(map[Quote]bool, len(index))
		for id, q := range index {
			if !onDisk[q] {
				delete(index, id)
				removed++
				continue
			}
			known[q] = true
		}
		for q := range onDisk {
			if !known[q] {
				index[newID(index)] = q
				added++
			}
		}
		if added == 0 && removed == 0 {
			return store.ErrNoChange
		}
		return nil
	})
	return added, removed, err
}

// scan lists image files below the group's images directory.
func (b *Book) scan(group string) (map[Quote]bool, error) {
	root := filepath.Join(b.dir, group, "images")
	found := map[Quote]bool{}
	dirs, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return found, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "cannot read %s", root)
	}
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(root, d.Name()))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "cannot read %s", d.Name())
		}
		for _, f := range files {
			if f.IsDir() || strings.HasPrefix(f.Name(), ".") || filepath.Ext(f.Name()) == "" {
				continue
			}
			found[Quote{Member: d.Name(), Filename: f.Name()}] = true
		}
	}
	return found, nil
}

// Groups lists the groups that have quote records.
func (b *Book) Groups(ctx context.Context) ([]string, error) {
	keys, err := b.store.Keys(ctx, "quotes/")
	if err != nil {
		return nil, err
	}
	var groups []string
	for _, k := range keys {
		parts := strings.Split(k, "/")
		if len(parts) == 3 && !slices.Contains(groups, parts[1]) {
			groups = append(groups, parts[1])
		}
	}
	sort.Strings(groups)
	return groups, nil
}
