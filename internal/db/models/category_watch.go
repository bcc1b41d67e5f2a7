package models

// WatchState is the per user subscription state of a category.
type WatchState int

// Watch states, ordered by how much a user wants to hear about a category.
const (
	WatchStateIgnoring    WatchState = 1
	WatchStateNotWatching WatchState = 2
	WatchStateWatching    WatchState = 3
)

var watchStateNames = map[WatchState]string{
	WatchStateIgnoring:    "ignoring",
	WatchStateNotWatching: "notwatching",
	WatchStateWatching:    "watching",
}

// String returns the wire name of the state.
func (s WatchState) String() string {
	return watchStateNames[s]
}

// ParseWatchState maps a wire name to its state.
func ParseWatchState(name string) (WatchState, bool) {
	for state, n := range watchStateNames {
		if n == name {
			return state, true
		}
	}

	return 0, false
}

// CategoryWatch stores a watch state that differs from the configured default.
type CategoryWatch struct {
	UID   int64      `gorm:"column:uid;primaryKey"`
	CID   int64      `gorm:"column:cid;primaryKey"`
	State WatchState `gorm:"not null"`
}

// TableName specifies the database table name for the CategoryWatch model.
func (CategoryWatch) TableName() string {
	return "category_watch"
}
