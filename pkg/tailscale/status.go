package tailscale

import (
	"sort"
	"time"
)

// Status is the document returned by GET /localapi/v0/status.
type Status struct {
	Version        string                 `json:"Version"`
	TUN            bool                   `json:"TUN"`
	BackendState   string                 `json:"BackendState"`
	HaveNodeKey    *bool                  `json:"HaveNodeKey,omitempty"`
	AuthURL        string                 `json:"AuthURL"`
	TailscaleIPs   []string               `json:"TailscaleIPs"`
	Self           *PeerStatus            `json:"Self"`
	ExitNodeStatus *ExitNodeStatus        `json:"ExitNodeStatus,omitempty"`
	Health         []string               `json:"Health"`
	MagicDNSSuffix string                 `json:"MagicDNSSuffix"`
	CurrentTailnet *TailnetStatus         `json:"CurrentTailnet"`
	CertDomains    []string               `json:"CertDomains"`
	Peer           map[string]*PeerStatus `json:"Peer"`
	User           map[string]UserProfile `json:"User"`
	ClientVersion  *ClientVersion         `json:"ClientVersion"`
}

// PeerStatus describes one member of the tailnet.
type PeerStatus struct {
	ID              string     `json:"ID"`
	PublicKey       string     `json:"PublicKey"`
	HostName        string     `json:"HostName"`
	DNSName         string     `json:"DNSName"`
	OS              string     `json:"OS"`
	UserID          int64      `json:"UserID"`
	AltSharerUserID *int64     `json:"AltSharerUserID,omitempty"`
	TailscaleIPs    []string   `json:"TailscaleIPs"`
	AllowedIPs      []string   `json:"AllowedIPs"`
	PrimaryRoutes   []string   `json:"PrimaryRoutes,omitempty"`
	Tags            []string   `json:"Tags"`
	Addrs           []string   `json:"Addrs"`
	CurAddr         string     `json:"CurAddr"`
	Relay           string     `json:"Relay"`
	PeerRelay       string     `json:"PeerRelay,omitempty"`
	RxBytes         int64      `json:"RxBytes"`
	TxBytes         int64      `json:"TxBytes"`
	Created         time.Time  `json:"Created"`
	LastWrite       time.Time  `json:"LastWrite"`
	LastSeen        time.Time  `json:"LastSeen"`
	LastHandshake   time.Time  `json:"LastHandshake"`
	Online          bool       `json:"Online"`
	ExitNode        bool       `json:"ExitNode"`
	ExitNodeOption  bool       `json:"ExitNodeOption"`
	Active          bool       `json:"Active"`
	PeerAPIURL      []string   `json:"PeerAPIURL"`
	InNetworkMap    bool       `json:"InNetworkMap"`
	InMagicSock     bool       `json:"InMagicSock"`
	InEngine        bool       `json:"InEngine"`
	TaildropTarget  int        `json:"TaildropTarget,omitempty"`
	Capabilities    []string   `json:"Capabilities,omitempty"`
	SSHHostKeys     []string   `json:"sshHostKeys,omitempty"`
	ShareeNode      bool       `json:"ShareeNode,omitempty"`
	KeyExpiry       *time.Time `json:"KeyExpiry,omitempty"`
	Expired         bool       `json:"Expired,omitempty"`
	Location        *Location  `json:"Location,omitempty"`
}

// TailnetStatus describes the tailnet the daemon is logged into.
type TailnetStatus struct {
	Name            string `json:"Name"`
	MagicDNSSuffix  string `json:"MagicDNSSuffix"`
	MagicDNSEnabled bool   `json:"MagicDNSEnabled"`
}

// ExitNodeStatus describes the exit node currently in use, if any.
type ExitNodeStatus struct {
	ID           string   `json:"ID"`
	Online       bool     `json:"Online"`
	TailscaleIPs []string `json:"TailscaleIPs"`
}

// UserProfile is a tailnet user.
type UserProfile struct {
	ID            int64  `json:"ID"`
	LoginName     string `json:"LoginName"`
	DisplayName   string `json:"DisplayName"`
	ProfilePicURL string `json:"ProfilePicURL,omitempty"`
}

// ClientVersion carries update information for the running daemon.
type ClientVersion struct {
	RunningLatest        *bool  `json:"RunningLatest,omitempty"`
	LatestVersion        string `json:"LatestVersion,omitempty"`
	UrgentSecurityUpdate *bool  `json:"UrgentSecurityUpdate,omitempty"`
	Notify               *bool  `json:"Notify,omitempty"`
	NotifyURL            string `json:"NotifyURL,omitempty"`
	NotifyText           string `json:"NotifyText,omitempty"`
}

// Location is the geographic location of a peer (Mullvad exit nodes).
type Location struct {
	Country     string   `json:"Country,omitempty"`
	CountryCode string   `json:"CountryCode,omitempty"`
	City        string   `json:"City,omitempty"`
	CityCode    string   `json:"CityCode,omitempty"`
	Latitude    *float64 `json:"Latitude,omitempty"`
	Longitude   *float64 `json:"Longitude,omitempty"`
	Priority    *int     `json:"Priority,omitempty"`
}

// SortedPeers returns the non-nil peers ordered by peer key.
func (s *Status) SortedPeers() []*PeerStatus {
	if s == nil || len(s.Peer) == 0 {
		return nil
	}

	keys := make([]string, 0, len(s.Peer))
	for key, peer := range s.Peer {
		if peer != nil {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	peers := make([]*PeerStatus, len(keys))
	for i, key := range keys {
		peers[i] = s.Peer[key]
	}
	return peers
}

// NeverActive reports whether the peer has never written to the tunnel.
// tailscaled reports that as the zero time; the Unix epoch is accepted too.
func (p *PeerStatus) NeverActive() bool {
	return p.LastWrite.IsZero() || p.LastWrite.Equal(time.Unix(0, 0))
}
