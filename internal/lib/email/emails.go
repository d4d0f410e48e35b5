package email

// SendAccountCreatedEmail tells an administrator that a new account exists.
func (c *Client) SendAccountCreatedEmail(to, username, roleName, createdBy string) error {
	data := map[string]string{
		"Username":  username,
		"RoleName":  roleName,
		"CreatedBy": createdBy,
	}

	return c.SendEmail(
		to,
		"New Stockroom account: "+username,
		TemplateAccountCreated,
		data,
	)
}
