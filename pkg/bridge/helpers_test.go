package bridge_test

import "github.com/agentstation/recordsync/pkg/records"

func testKind() *records.Kind {
	return &records.Kind{
		Name:              "price-approval",
		Module:            "crm",
		EntityClass:       "CCrmDocumentDeal",
		InstanceKeyPrefix: "DEAL_",
		Methods: records.Methods{
			Placement: "placement.info",
			Get:       "crm.deal.get",
			Fields:    "crm.deal.fields",
			Update:    "crm.deal.update",
			Workflow:  "bizproc.workflow.start",
		},
		Fields: []records.FieldSpec{
			{ID: "rate", Code: "UF_CRM_RATE", Required: true, Type: records.FieldTypeMoney},
			{ID: "area", Code: "UF_CRM_AREA", Type: records.FieldTypeNumber},
		},
		Workflow: records.Workflow{
			TemplateRef: "42",
			Parameters:  map[string]string{"Approver": "manager"},
		},
	}
}
