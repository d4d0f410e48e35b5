package email

// PreviewData holds sample values for every template, keyed by template
// name, for local rendering checks.
var PreviewData = map[Template]map[string]string{
	TemplateAccountCreated: {
		"Username":  "jdoe",
		"RoleName":  "seller",
		"CreatedBy": "admin",
	},
}
