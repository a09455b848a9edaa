package registry

import (
	"time"

	"github.com/autoflowhq/autoflow/pkg/nodes/compare"
	"github.com/autoflowhq/autoflow/pkg/nodes/conditional"
	"github.com/autoflowhq/autoflow/pkg/nodes/httprequest"
	"github.com/autoflowhq/autoflow/pkg/nodes/javascript"
	"github.com/autoflowhq/autoflow/pkg/nodes/log"
	"github.com/autoflowhq/autoflow/pkg/nodes/message"
	switchnode "github.com/autoflowhq/autoflow/pkg/nodes/switch"
	"github.com/autoflowhq/autoflow/pkg/nodes/timewindow"
	"github.com/autoflowhq/autoflow/pkg/nodes/transform"
	"github.com/autoflowhq/autoflow/pkg/nodes/trigger"
	"github.com/autoflowhq/autoflow/pkg/protocol"
)

// RegisterDefaultNodes registers all built-in node factories with the registry.
// follow-user stays unregistered and resolves to the no-op action.
func (r *Registry) RegisterDefaultNodes(messenger protocol.Messenger) {
	for _, f := range trigger.DefaultFactories() {
		r.RegisterTrigger(f)
	}

	if messenger != nil {
		r.RegisterAction(message.NewDirectMessageActionFactory(messenger))
		r.RegisterAction(message.NewReplyCommentActionFactory(messenger))
	}

	r.RegisterAction(httprequest.NewHTTPRequestActionFactory())
	r.RegisterAction(log.NewLogActionFactory())
	r.RegisterAction(transform.NewTransformActionFactory())

	r.RegisterCondition(conditional.NewTemplateConditionFactory("template"))
	r.RegisterCondition(conditional.NewTemplateConditionFactory("if-condition"))
	r.RegisterCondition(compare.NewConditionFactory("compare"))
	r.RegisterCondition(compare.NewConditionFactory("data-condition"))
	r.RegisterCondition(javascript.NewConditionFactory())
	r.RegisterCondition(switchnode.NewSwitchConditionFactory())
	r.RegisterCondition(timewindow.NewConditionFactory(time.Now))
}
