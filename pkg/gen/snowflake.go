package gen

import (
	"fmt"

	"clinic-controlplane/pkg/config"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

var Module = fx.Module("gen", fx.Provide(ProvideNode))

// ProvideNode builds the snowflake node for APP_NODE_ID. Replicas sharing a
// database need distinct node ids.
func ProvideNode(cfg *config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("init snowflake node %d: %w", cfg.NodeID, err)
	}
	return node, nil
}
