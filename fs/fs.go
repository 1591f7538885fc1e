// Package appfs embeds the database migrations, the email templates and other assets.
package appfs

import "embed"

//go:embed migrations/*.sql templates/email/* assets/common-passwords.txt
var FS embed.FS
