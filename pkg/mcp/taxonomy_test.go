package mcp

import "testing"

func TestLookupKnownMethods(t *testing.T) {
	cases := []struct {
		method  string
		channel Channel
	}{
		{"tools/call", ChannelToolsCall},
		{"tools/list", ChannelToolsList},
		{"prompts/list", ChannelPromptsList},
		{"resources/list", ChannelResourcesList},
		{"resources/templates/list", ChannelResourcesTemplatesList},
		{"resources/read", ChannelResourcesRead},
		{"initialize", ChannelInitialize},
	}

	for _, tc := range cases {
		entry := Lookup(tc.method, ClientToServer)
		if entry.Channel != tc.channel {
			t.Errorf("Lookup(%q) channel = %q, want %q", tc.method, entry.Channel, tc.channel)
		}
		if entry.Methods.Request == "" || entry.Methods.Result == "" || entry.Methods.Error == "" {
			t.Errorf("Lookup(%q) missing a hook method name: %+v", tc.method, entry.Methods)
		}
		if entry.Notification {
			t.Errorf("Lookup(%q) should not be a notification channel", tc.method)
		}
	}
}

func TestLookupUnknownMethodFallsBackByDirection(t *testing.T) {
	entry := Lookup("sampling/createMessage", ClientToServer)
	if entry.Channel != ChannelOther {
		t.Errorf("unknown method source->target should resolve to %q, got %q", ChannelOther, entry.Channel)
	}

	entry = Lookup("sampling/createMessage", ServerToClient)
	if entry.Channel != ChannelTarget {
		t.Errorf("unknown method target->source should resolve to %q, got %q", ChannelTarget, entry.Channel)
	}
}

func TestLookupNotification(t *testing.T) {
	entry := LookupNotification(ClientToServer)
	if entry.Channel != ChannelNotificationToServer || !entry.Notification {
		t.Errorf("unexpected client->server notification entry: %+v", entry)
	}

	entry = LookupNotification(ServerToClient)
	if entry.Channel != ChannelNotificationToClient || !entry.Notification {
		t.Errorf("unexpected server->client notification entry: %+v", entry)
	}
}

func TestDirectionReversed(t *testing.T) {
	if ClientToServer.Reversed() != ServerToClient {
		t.Error("ClientToServer.Reversed() should be ServerToClient")
	}
	if ServerToClient.Reversed() != ClientToServer {
		t.Error("ServerToClient.Reversed() should be ClientToServer")
	}
}
