package domain

// Pair - ключ и значение
type Pair struct {
	Key   string
	Value string
}

// Pairs - упорядоченный набор пар с уникальными ключами
type Pairs []Pair

// Tags - OSM теги объекта
type Tags = Pairs

// Record - плоская запись сабмита (basename -> значение)
type Record = Pairs

func (p Pairs) index(key string) int {
	for i := range p {
		if p[i].Key == key {
			return i
		}
	}
	return -1
}

func (p Pairs) Get(key string) (string, bool) {
	if i := p.index(key); i >= 0 {
		return p[i].Value, true
	}
	return "", false
}

// Value возвращает значение или пустую строку
func (p Pairs) Value(key string) string {
	v, _ := p.Get(key)
	return v
}

func (p Pairs) Has(key string) bool {
	return p.index(key) >= 0
}

// Set заменяет значение существующего ключа или добавляет пару в конец
func (p *Pairs) Set(key, value string) {
	if i := p.index(key); i >= 0 {
		(*p)[i].Value = value
		return
	}
	*p = append(*p, Pair{Key: key, Value: value})
}

func (p *Pairs) Delete(key string) {
	i := p.index(key)
	if i < 0 {
		return
	}
	*p = append((*p)[:i], (*p)[i+1:]...)
}

func (p Pairs) Keys() []string {
	keys := make([]string, len(p))
	for i := range p {
		keys[i] = p[i].Key
	}
	return keys
}

func (p Pairs) Map() map[string]string {
	m := make(map[string]string, len(p))
	for _, pair := range p {
		m[pair.Key] = pair.Value
	}
	return m
}

func (p Pairs) Clone() Pairs {
	if p == nil {
		return nil
	}
	return append(Pairs(nil), p...)
}

// PairsFromMap строит набор из map; порядок ключей задаётся order, остальные ключи не попадают
func PairsFromMap(m map[string]string, order []string) Pairs {
	out := make(Pairs, 0, len(m))
	for _, k := range order {
		if v, ok := m[k]; ok {
			out.Set(k, v)
		}
	}
	return out
}
