// Package onedrive talks to Microsoft Graph on behalf of the dashboard and
// interprets the change notifications it pushes back.
package onedrive

import (
	"path"
	"regexp"
	"strings"
)

// ChangeTypeUpdated is the only change type that can move a project.
const ChangeTypeUpdated = "updated"

// ChangeNotification is one entry of the `value` array Graph posts to the webhook.
type ChangeNotification struct {
	SubscriptionID                 string         `json:"subscriptionId"`
	SubscriptionExpirationDateTime string         `json:"subscriptionExpirationDateTime,omitempty"`
	ChangeType                     string         `json:"changeType"`
	Resource                       string         `json:"resource"`
	ClientState                    string         `json:"clientState"`
	TenantID                       string         `json:"tenantId,omitempty"`
	ResourceData                   map[string]any `json:"resourceData,omitempty"`
}

// NotificationBatch is the webhook request body.
type NotificationBatch struct {
	ValidationToken string               `json:"validationToken,omitempty"`
	Value           []ChangeNotification `json:"value"`
}

// ResourceInfo identifies a drive item addressed by a notification resource path.
type ResourceInfo struct {
	ContainerID string `json:"containerId"`
	ItemID      string `json:"itemId"`
}

var resourcePattern = regexp.MustCompile(`^/?drives/([^/]+)/items/([^/]+)$`)

// ExtractResourceInfo parses "/drives/{containerId}/items/{itemId}".
// It returns nil for anything else; callers treat nil as nothing to do.
func ExtractResourceInfo(resource string) *ResourceInfo {
	m := resourcePattern.FindStringSubmatch(strings.TrimSpace(resource))
	if m == nil {
		return nil
	}
	return &ResourceInfo{ContainerID: m[1], ItemID: m[2]}
}

// ParsedFileName is the client/service pair encoded in a project document name.
type ParsedFileName struct {
	ClientName  string `json:"clientName"`
	ServiceType string `json:"serviceType"`
}

// ParseFileName reads names shaped "First_Last_ServiceType.ext" or
// "Name_ServiceType.ext". Segments after the third are ignored, so
// "Sarah_Johnson_Kitchen_v2.pdf" still yields Sarah Johnson / kitchen.
// Anything with fewer than two non-empty segments yields nil.
func ParseFileName(fileName string) *ParsedFileName {
	base := strings.TrimSpace(fileName)
	base = strings.TrimSuffix(base, path.Ext(base))
	parts := strings.Split(base, "_")

	var name, service string
	switch {
	case len(parts) >= 3:
		name = strings.TrimSpace(parts[0]) + " " + strings.TrimSpace(parts[1])
		service = parts[2]
		if strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			return nil
		}
	case len(parts) == 2:
		name = strings.TrimSpace(parts[0])
		service = parts[1]
		if name == "" {
			return nil
		}
	default:
		return nil
	}

	service = strings.ToLower(strings.TrimSpace(service))
	if service == "" {
		return nil
	}
	return &ParsedFileName{ClientName: name, ServiceType: service}
}
