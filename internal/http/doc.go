// Package httpapp provides the HTTP server for the confessional board.
//
//	@title						Confessional API
//	@version					1.0
//	@description				An anonymous community board. Anyone can post short text or image
//	@description				"confessions" into a category, like them and report them. A single
//	@description				admin account can review reports and delete messages.
//	@description
//	@description				## Posting
//	@description				Every submission passes the moderation pipeline before it is stored:
//	@description				```
//	@description				presence → text filter → filename filter → image classifier → category → image → store
//	@description				```
//	@description				A refused submission returns 400 with a reason in `error`.
//	@description				```bash
//	@description				curl -X POST /api/messages -F text="hello" -F category=thoughts -F image=@cat.png
//	@description				```
//	@description
//	@description				## Admin
//	@description				Log in to get a session token, then send it as `token` in the request body
//	@description				or as `Authorization: Bearer TOKEN`.
//	@description				```bash
//	@description				curl -X POST /api/admin/login -d '{"username":"admin","password":"..."}'
//	@description				curl -X DELETE /api/messages/1700000000000 -H "Authorization: Bearer TOKEN"
//	@description				```
//
//	@contact.name				Confessional
//	@license.name				MIT
//
//	@host						localhost:3000
//	@BasePath					/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Admin session token from /api/admin/login
//
//	@tag.name					Messages
//	@tag.description			Browse, post, like and report messages.
//
//	@tag.name					Admin
//	@tag.description			Session login and moderation of reported messages.
//
//	@tag.name					Meta
//	@tag.description			Health, version and category listing.
package httpapp
