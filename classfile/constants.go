package classfile

import "fmt"

// ConstantKind is the tag byte of a constant pool entry.
type ConstantKind uint8

const (
	KindUtf8               ConstantKind = 1
	KindInteger            ConstantKind = 3
	KindFloat              ConstantKind = 4
	KindLong               ConstantKind = 5
	KindDouble             ConstantKind = 6
	KindClass              ConstantKind = 7
	KindString             ConstantKind = 8
	KindFieldref           ConstantKind = 9
	KindMethodref          ConstantKind = 10
	KindInterfaceMethodref ConstantKind = 11
	KindNameAndType        ConstantKind = 12
	KindMethodHandle       ConstantKind = 15
	KindMethodType         ConstantKind = 16
	KindDynamic            ConstantKind = 17
	KindInvokeDynamic      ConstantKind = 18
	KindModule             ConstantKind = 19
	KindPackage            ConstantKind = 20

	// KindUnusable marks slot 0 and the slot following a long or double.
	KindUnusable ConstantKind = 255
)

var kindNames = map[ConstantKind]string{
	KindUtf8:               "Utf8",
	KindInteger:            "Integer",
	KindFloat:              "Float",
	KindLong:               "Long",
	KindDouble:             "Double",
	KindClass:              "Class",
	KindString:             "String",
	KindFieldref:           "Fieldref",
	KindMethodref:          "Methodref",
	KindInterfaceMethodref: "InterfaceMethodref",
	KindNameAndType:        "NameAndType",
	KindMethodHandle:       "MethodHandle",
	KindMethodType:         "MethodType",
	KindDynamic:            "Dynamic",
	KindInvokeDynamic:      "InvokeDynamic",
	KindModule:             "Module",
	KindPackage:            "Package",
	KindUnusable:           "unusable",
}

func (k ConstantKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ConstantKind(%d)", uint8(k))
}

// Constant is one constant pool entry.
type Constant interface {
	Kind() ConstantKind
}

type (
	// Utf8 holds the raw modified UTF-8 bytes of a CONSTANT_Utf8 entry.
	Utf8 struct {
		Bytes []byte
	}
	ClassRef struct {
		NameIndex uint16
	}
	StringRef struct {
		StringIndex uint16
	}
	Integer struct {
		Value int32
	}
	Float struct {
		Value float32
	}
	Long struct {
		Value int64
	}
	Double struct {
		Value float64
	}
	// MemberRef covers Fieldref, Methodref and InterfaceMethodref.
	MemberRef struct {
		Tag              ConstantKind
		ClassIndex       uint16
		NameAndTypeIndex uint16
	}
	NameAndType struct {
		NameIndex       uint16
		DescriptorIndex uint16
	}
	MethodHandle struct {
		ReferenceKind  uint8
		ReferenceIndex uint16
	}
	MethodType struct {
		DescriptorIndex uint16
	}
	// Dynamic covers CONSTANT_Dynamic and CONSTANT_InvokeDynamic.
	Dynamic struct {
		Tag                      ConstantKind
		BootstrapMethodAttrIndex uint16
		NameAndTypeIndex         uint16
	}
	// ModuleRef covers CONSTANT_Module and CONSTANT_Package.
	ModuleRef struct {
		Tag       ConstantKind
		NameIndex uint16
	}
	Unusable struct{}
)

func (Utf8) Kind() ConstantKind         { return KindUtf8 }
func (ClassRef) Kind() ConstantKind     { return KindClass }
func (StringRef) Kind() ConstantKind    { return KindString }
func (Integer) Kind() ConstantKind      { return KindInteger }
func (Float) Kind() ConstantKind        { return KindFloat }
func (Long) Kind() ConstantKind         { return KindLong }
func (Double) Kind() ConstantKind       { return KindDouble }
func (c MemberRef) Kind() ConstantKind  { return c.Tag }
func (NameAndType) Kind() ConstantKind  { return KindNameAndType }
func (MethodHandle) Kind() ConstantKind { return KindMethodHandle }
func (MethodType) Kind() ConstantKind   { return KindMethodType }
func (c Dynamic) Kind() ConstantKind    { return c.Tag }
func (c ModuleRef) Kind() ConstantKind  { return c.Tag }
func (Unusable) Kind() ConstantKind     { return KindUnusable }

// Pool is a constant pool indexed exactly like the class file (slot 0 unused).
type Pool []Constant

// Len returns the constant_pool_count of the class file.
func (p Pool) Len() int {
	return len(p)
}

// At returns the entry at index, or an error if the index is out of range or
// refers to an unusable slot.
func (p Pool) At(index uint16) (Constant, error) {
	if int(index) <= 0 || int(index) >= len(p) {
		return nil, fmt.Errorf("%w: index %d out of range (pool size %d)", ErrBadConstant, index, len(p))
	}
	c := p[index]
	if c == nil || c.Kind() == KindUnusable {
		return nil, fmt.Errorf("%w: index %d is unusable", ErrBadConstant, index)
	}
	return c, nil
}

// Utf8 returns the string value of a CONSTANT_Utf8 entry.
func (p Pool) Utf8(index uint16) (string, error) {
	c, err := p.At(index)
	if err != nil {
		return "", err
	}
	u, ok := c.(Utf8)
	if !ok {
		return "", fmt.Errorf("%w: index %d is %s, want Utf8", ErrBadConstant, index, c.Kind())
	}
	return string(u.Bytes), nil
}

// ClassName returns the internal (slash separated) name of a CONSTANT_Class entry.
func (p Pool) ClassName(index uint16) (string, error) {
	c, err := p.At(index)
	if err != nil {
		return "", err
	}
	cr, ok := c.(ClassRef)
	if !ok {
		return "", fmt.Errorf("%w: index %d is %s, want Class", ErrBadConstant, index, c.Kind())
	}
	return p.Utf8(cr.NameIndex)
}

// NameAndType returns the name and descriptor of a CONSTANT_NameAndType entry.
func (p Pool) NameAndType(index uint16) (name, descriptor string, err error) {
	c, err := p.At(index)
	if err != nil {
		return "", "", err
	}
	nt, ok := c.(NameAndType)
	if !ok {
		return "", "", fmt.Errorf("%w: index %d is %s, want NameAndType", ErrBadConstant, index, c.Kind())
	}
	if name, err = p.Utf8(nt.NameIndex); err != nil {
		return "", "", err
	}
	if descriptor, err = p.Utf8(nt.DescriptorIndex); err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// Ref is a resolved field or method reference.
type Ref struct {
	Kind       ConstantKind
	Class      string
	Name       string
	Descriptor string
}

// MemberRef resolves a Fieldref, Methodref or InterfaceMethodref entry.
func (p Pool) MemberRef(index uint16) (Ref, error) {
	c, err := p.At(index)
	if err != nil {
		return Ref{}, err
	}
	mr, ok := c.(MemberRef)
	if !ok {
		return Ref{}, fmt.Errorf("%w: index %d is %s, want a member reference", ErrBadConstant, index, c.Kind())
	}
	class, err := p.ClassName(mr.ClassIndex)
	if err != nil {
		return Ref{}, err
	}
	name, desc, err := p.NameAndType(mr.NameAndTypeIndex)
	if err != nil {
		return Ref{}, err
	}
	return Ref{Kind: mr.Tag, Class: class, Name: name, Descriptor: desc}, nil
}
