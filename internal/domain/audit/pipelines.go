package audit

import (
	"github.com/jhoicas/moysklad-audit/internal/domain/entity"
)

var (
	ruleChannel  = Rule{Key: "channel", Category: "Канал продаж", Check: checkSalesChannel}
	ruleProject  = Rule{Key: "project", Category: "Проект", Check: checkProject}
	rulePrice    = Rule{Key: "price", Category: "Цена", Check: checkZeroPrices}
	ruleSource   = Rule{Key: "source", Category: "Источник продажи", Check: checkSalesSource}
	ruleContract = Rule{Key: "contract", Category: "Договор", Group: GroupContract, Check: checkContractPresence}
	ruleFields   = Rule{Key: "contract_fields", Category: "Поля договора", Group: GroupContract, Check: checkContractFields}
	ruleMethod   = Rule{Key: "payment_method", Category: "Метод расчета", Group: GroupContract, Check: checkPaymentMethod}
	rulePayment  = Rule{Key: "payment", Category: "Оплата", Group: GroupContract, Check: checkPayment}
)

var pipelines = map[entity.DocumentType][]Rule{
	entity.DocContractor: {
		{Key: "phone", Category: "Телефон", Check: checkPhone},
		{Key: "pd_agreement", Category: "Соглашение ПД", Check: checkPDAgreement},
		{Key: "pd_date", Category: "Соглашение ПД (дата)", Check: checkPDAgreementDate},
		{Key: "unp", Category: "УНП/ИНН", Check: checkTaxID},
		{Key: "actual_address", Category: "Фактический адрес", Check: checkActualAddress},
		{Key: "groups", Category: "Группа", Check: checkGroups},
		{Key: "type_name_mismatch", Category: "Тип ↔ Наименование", Check: checkTypeNameConsistency},
		{Key: "contract_type", Category: "Тип договора",
			Check: directoryCheck("Тип договора", contractTypeAttr, entity.RegionRB, entity.RegionRF)},
		{Key: "client_type", Category: "Тип клиента",
			Check: directoryCheck("Тип клиента", clientTypeAttr, entity.RegionRB, entity.RegionRF)},
		{Key: "region", Category: "Регион РБ",
			Check: directoryCheck("Регион РБ", regionAttr, entity.RegionRB)},
	},
	entity.DocShipment: {
		ruleSource, ruleChannel, ruleProject, rulePrice, ruleContract, ruleFields,
		{Key: "contract_type_shipment", Category: "Тип договора", Group: GroupContract, Check: checkShipmentContractType},
		ruleMethod, rulePayment,
	},
	entity.DocRetailSale:        salesPipeline(),
	entity.DocConsignmentIn:     salesPipeline(),
	entity.DocSalesReturn:       returnPipeline(),
	entity.DocRetailReturn:      returnPipeline(),
	entity.DocConsignmentReturn: returnPipeline(),
}

func salesPipeline() []Rule {
	fields := ruleFields
	fields.UnlessFailed = ruleContract.Key
	return []Rule{rulePrice, ruleChannel, ruleProject, ruleContract, fields, ruleSource, ruleMethod, rulePayment}
}

func returnPipeline() []Rule {
	return []Rule{ruleChannel, ruleProject, rulePrice}
}

// Pipeline reglas del tipo de documento, en orden de evaluación.
func Pipeline(typ entity.DocumentType) []Rule {
	return pipelines[typ]
}

// RuleKeys claves de las reglas del tipo (útil para informes y pruebas).
func RuleKeys(typ entity.DocumentType) []string {
	rules := Pipeline(typ)
	keys := make([]string, len(rules))
	for i, r := range rules {
		keys[i] = r.Key
	}
	return keys
}
