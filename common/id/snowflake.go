package id

import (
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node. Each process type uses its own node ID
// (server 1, worker 2, cli 3) so run and eval IDs never collide.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a time-ordered int64 ID. Init must have been called.
func New() int64 {
	return node.Generate().Int64()
}

// NewString is New formatted in base 10, used where IDs travel as strings
// (document IDs minted by the CLI, stream fields).
func NewString() string {
	return strconv.FormatInt(New(), 10)
}
