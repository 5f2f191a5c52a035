package meridian

import "fmt"

// Network selects a Meridian deployment.
type Network string

const (
	Mainnet  Network = "mainnet"
	Testnet  Network = "testnet"
	Localnet Network = "localnet"
)

// Endpoints carries the default service URLs for a network.
type Endpoints struct {
	FullNodeURL string
	GatewayURL  string
}

// AddressBook maps the protocol's deployed packages and shared objects on
// one network. These are the call targets every transaction builder in the
// SDK resolves against.
type AddressBook struct {
	LendingPackage    Address
	LendingMarket     Address
	OraclePackage     Address
	OracleRegistry    Address
	RewardsPackage    Address
	RewardsVault      Address
	AggregatorPackage Address
	ClockObject       Address
}

var networkEndpoints = map[Network]Endpoints{
	Mainnet: {
		FullNodeURL: "https://fullnode.meridian.fi",
		GatewayURL:  "https://api.meridian.fi",
	},
	Testnet: {
		FullNodeURL: "https://fullnode.testnet.meridian.fi",
		GatewayURL:  "https://api.testnet.meridian.fi",
	},
	Localnet: {
		FullNodeURL: "http://127.0.0.1:9000",
		GatewayURL:  "http://127.0.0.1:8080",
	},
}

var networkAddresses = map[Network]AddressBook{
	Mainnet: {
		LendingPackage:    MustAddress("0xd899cf7d2b5db716bd2cf55599fb0d5ee38a3061e7b6bb6eebf73fa5bc4c81ca"),
		LendingMarket:     MustAddress("0xbb4e2f4b6205c2e2a2db47aeb4f830796ec7c005f88537ee775986639bc442fe"),
		OraclePackage:     MustAddress("0xca441b44943c16be0e6e23c5a955bb971537ea3289ae8016fbf33fffe1fd210f"),
		OracleRegistry:    MustAddress("0x1568865ed9a0b5ec414220e8f79b3d04c77acc82358f6e5ae4635687392ffbef"),
		RewardsPackage:    MustAddress("0xc5bdcb8f4f34bd5dd332dbe6c9e9f68dbb1c1e31b108caa4dc2ddcaa7d4c6a1a"),
		RewardsVault:      MustAddress("0xe2b5df4df7cf13cd280ea34e219d2e7b88b4d1ba46b43a0e4efcf70c91f38e66"),
		AggregatorPackage: MustAddress("0x57d4f00af225c487fd21eb6b7a26b2146fbd94d53f58b487fd8eaf93ad34d6c1"),
		ClockObject:       MustAddress("0x6"),
	},
	Testnet: {
		LendingPackage:    MustAddress("0x83bbe35ba16a83a4cbb01d09ba9a45b4a67e27fabb05bae11db8aee5e38ab8f2"),
		LendingMarket:     MustAddress("0x9f73d1b3d46709effe5c4b4e5bba5e85d1dd1dbc95c11a9c91a7d2e1c1f06bbd"),
		OraclePackage:     MustAddress("0x52ef2b3c4de22a1c929f0c8d5cf66a6c27b1e8ff29c915ba83b1e77fdc7a6fa9"),
		OracleRegistry:    MustAddress("0x9e73b1c5fd01e3d7c2e00d64be87f939a8e9eb46a23a63a9c6633e75ccab2f7d"),
		RewardsPackage:    MustAddress("0xa1deea9cc2f0b616bcb1743a9cd330b31e825f44dbb070d4c2b2ed37e4e1ccd9"),
		RewardsVault:      MustAddress("0xcdee9c7b58f03e4b2ad5dd8b662569cbf6a2deceaaf45d9f4a3dba47e34c53f6"),
		AggregatorPackage: MustAddress("0x3a384fd7836e867696d5c2f48c78b17b9e96aa0dc05bee5e1ea79dbfbd70ad5f"),
		ClockObject:       MustAddress("0x6"),
	},
	Localnet: {
		LendingPackage:    MustAddress("0x100"),
		LendingMarket:     MustAddress("0x101"),
		OraclePackage:     MustAddress("0x200"),
		OracleRegistry:    MustAddress("0x201"),
		RewardsPackage:    MustAddress("0x300"),
		RewardsVault:      MustAddress("0x301"),
		AggregatorPackage: MustAddress("0x400"),
		ClockObject:       MustAddress("0x6"),
	},
}

// Endpoints returns the default service URLs for the network.
func (n Network) Endpoints() (Endpoints, error) {
	eps, ok := networkEndpoints[n]
	if !ok {
		return Endpoints{}, fmt.Errorf("unknown network %q", n)
	}
	return eps, nil
}

// Addresses returns the deployed address book for the network.
func (n Network) Addresses() (AddressBook, error) {
	book, ok := networkAddresses[n]
	if !ok {
		return AddressBook{}, fmt.Errorf("unknown network %q", n)
	}
	return book, nil
}
