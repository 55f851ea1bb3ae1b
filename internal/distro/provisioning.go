package distro

// Kickstart metadata requested along with an extra data partition.
const partitionKSMeta = "autopart_type=plain"

// Partition describes an extra disk partition for the installer to create
type Partition struct {
	FS     string
	Name   string
	SizeGB int
	Type   string
}

// DataPartition is the partition requested by --partition
var DataPartition = Partition{
	FS:     "xfs",
	Name:   "/data",
	SizeGB: 100,
	Type:   "part",
}

// Provisioning holds the optional install-time metadata for a job
type Provisioning struct {
	KSMeta     string
	Partitions []Partition
}

// Resolve looks up key and derives the provisioning metadata for the job.
func Resolve(key string, partition bool) (Profile, Provisioning, error) {
	p, err := Lookup(key)
	if err != nil {
		return Profile{}, Provisioning{}, err
	}

	var prov Provisioning
	if partition {
		prov.KSMeta = partitionKSMeta
		prov.Partitions = []Partition{DataPartition}
	}

	return p, prov, nil
}
