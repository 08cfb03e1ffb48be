package cmd

import (
	"log/slog"

	"github.com/j7-dev/powerfunnel/pkg/config"
	nodeemail "github.com/j7-dev/powerfunnel/pkg/nodes/email"
	nodeline "github.com/j7-dev/powerfunnel/pkg/nodes/line"
	nodesms "github.com/j7-dev/powerfunnel/pkg/nodes/sms"
	"github.com/j7-dev/powerfunnel/pkg/nodes/wait"
	"github.com/j7-dev/powerfunnel/pkg/nodes/waituntil"
	"github.com/j7-dev/powerfunnel/pkg/nodes/webhook"
	"github.com/j7-dev/powerfunnel/pkg/params"
	"github.com/j7-dev/powerfunnel/pkg/persistence"
	"github.com/j7-dev/powerfunnel/pkg/protocol"
	"github.com/j7-dev/powerfunnel/pkg/registry"
	senderemail "github.com/j7-dev/powerfunnel/pkg/senders/email"
	senderline "github.com/j7-dev/powerfunnel/pkg/senders/line"
	sendersms "github.com/j7-dev/powerfunnel/pkg/senders/sms"
)

// NewRegistry builds the node definition catalog with every built-in
// definition registered and the registry frozen.
func NewRegistry(
	cfg config.SendersConfig,
	resolver *params.Resolver,
	store persistence.Persistence,
	continuer protocol.Continuer,
	logger *slog.Logger,
) *registry.Registry {
	reg := registry.NewRegistry(logger)

	emailSender := senderemail.NewSender(cfg.Email, logger)
	lineSender := senderline.NewSender(cfg.Line, logger)
	smsSender := sendersms.NewSender(cfg.SMS, logger)

	definitions := []protocol.NodeDefinition{
		nodeemail.NewDefinition(resolver, emailSender, store.Templates(), logger),
		nodeline.NewDefinition(resolver, lineSender, logger),
		nodesms.NewDefinition(resolver, smsSender, logger),
		webhook.NewDefinition(resolver, logger),
		wait.NewDefinition(resolver, continuer, logger),
		waituntil.NewDefinition(resolver, continuer, logger),
	}

	for _, definition := range definitions {
		if err := reg.Register(definition); err != nil {
			panic(err)
		}
	}

	reg.Freeze()

	return reg
}
