package core

// Identified is any record with a collection-unique id.
type Identified interface {
	RecordID() string
}

// Nestable is a record that may hang under a root record of the same collection.
type Nestable interface {
	Identified
	ParentRef() string
}

// Node is a root record with its direct sub-records. Records never nest deeper.
type Node[T Nestable] struct {
	Root     T   `json:"root"`
	Children []T `json:"children"`
}

type (
	LendingNode = Node[LendingRecord]
	ExpenseNode = Node[Expense]
)

// BuildTree groups records under their roots, keeping input order. A sub-record
// whose parent is missing is promoted to a root.
func BuildTree[T Nestable](records []T) []Node[T] {
	index := make(map[string]int, len(records))
	var nodes []Node[T]
	for _, r := range records {
		if r.ParentRef() == "" {
			index[r.RecordID()] = len(nodes)
			nodes = append(nodes, Node[T]{Root: r, Children: []T{}})
		}
	}
	for _, r := range records {
		if r.ParentRef() == "" {
			continue
		}
		if i, ok := index[r.ParentRef()]; ok {
			nodes[i].Children = append(nodes[i].Children, r)
			continue
		}
		nodes = append(nodes, Node[T]{Root: r, Children: []T{}})
	}
	if nodes == nil {
		nodes = []Node[T]{}
	}
	return nodes
}

// ChildrenOf returns the ids of records whose parent is id.
func ChildrenOf[T Nestable](records []T, id string) []string {
	var out []string
	for _, r := range records {
		if r.ParentRef() == id {
			out = append(out, r.RecordID())
		}
	}
	return out
}
