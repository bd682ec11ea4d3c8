// Package seed bootstraps a fresh installation from a YAML document.
//
// A seed lists menus and departments as nested trees, roles with the menus
// they grant, and users with their role codes:
//
//	menus:
//	  - name: System
//	    icon: setting
//	    children:
//	      - name: Users
//	        path: /system/users
//	        perm_key: system:user:list
//	        children:
//	          - {name: Add user, type: button, perm_key: "system:user:add"}
//	roles:
//	  - code: admin
//	    name: Administrator
//	    menus: ["*"]
//	users:
//	  - username: admin
//	    password: change-me
//	    roles: [admin]
//
// Role menus are referenced by permission key or by menu name; "*" grants
// every menu. Applying the same seed twice creates nothing new.
package seed
